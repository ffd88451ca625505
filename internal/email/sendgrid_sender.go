package email

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers messages through the SendGrid v3 API
type SendGridSender struct {
	key    string
	host   string
	from   *sgmail.Email
	client *rest.Client
	logger *zap.Logger
}

func NewSendGridSender(key string, from mail.Address, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		key:    key,
		host:   sendgridHost,
		from:   sgmail.NewEmail(from.Name, from.Address),
		client: rest.DefaultClient,
		logger: logger,
	}
}

// WithHost points the sender at a different API host
func (s *SendGridSender) WithHost(host string) *SendGridSender {
	s.host = host
	return s
}

func (s *SendGridSender) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextContent),
		sgmail.NewContent("text/html", msg.HTMLContent),
	)
	return m
}

// Send posts the message; cancelling ctx aborts the call in flight
func (s *SendGridSender) Send(ctx context.Context, msg *Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return fmt.Errorf("failed to build sendgrid request: %w", err)
	}
	httpResp, err := s.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	res, err := rest.BuildResponse(httpResp)
	if err != nil {
		return fmt.Errorf("failed to read sendgrid response: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error("sendgrid rejected email",
			zap.Int("status", res.StatusCode),
			zap.String("template", msg.TemplateName),
			zap.String("body", res.Body),
		)
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}

	s.logger.Debug("email sent",
		zap.String("template", msg.TemplateName),
		zap.Int("status", res.StatusCode),
	)
	return nil
}
