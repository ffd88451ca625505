package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/studybuddy/studybuddy-api/internal/config"
	"go.uber.org/zap"
)

//go:embed templates/*.gohtml templates/*.txt
var templateFS embed.FS

// Template names; each has a .gohtml and a .txt variant under templates/
const (
	TemplateVerification     = "verification"
	TemplatePasswordReset    = "password_reset"
	TemplateSessionReminder  = "session_reminder"
	TemplateSessionCancelled = "session_cancelled"
)

// Message is a single outgoing email
type Message struct {
	To           mail.Address
	Subject      string
	TemplateName string
	TemplateData interface{}
	TextContent  string
	HTMLContent  string
}

// HasContent reports whether the message has a rendered body
func (m *Message) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ContextData is the root object passed to every template
type ContextData struct {
	AppName         string
	FrontendBaseURL string
	Data            interface{}
}

type templatePair struct {
	html *htmltmpl.Template
	text *texttmpl.Template
}

// Renderer fills message bodies from the embedded templates
type Renderer struct {
	appName     string
	frontendURL string
	templates   map[string]templatePair
}

// NewRenderer parses all embedded templates up front
func NewRenderer(appName, frontendURL string) (*Renderer, error) {
	r := &Renderer{
		appName:     appName,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   make(map[string]templatePair),
	}

	names := []string{TemplateVerification, TemplatePasswordReset, TemplateSessionReminder, TemplateSessionCancelled}
	for _, name := range names {
		html, err := htmltmpl.New(name).Option("missingkey=error").ParseFS(templateFS,
			path.Join("templates", "_base.gohtml"),
			path.Join("templates", name+".gohtml"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s html template: %w", name, err)
		}
		text, err := texttmpl.New(name).Option("missingkey=error").ParseFS(templateFS,
			path.Join("templates", "_base.txt"),
			path.Join("templates", name+".txt"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s text template: %w", name, err)
		}
		r.templates[name] = templatePair{html: html, text: text}
	}

	return r, nil
}

// FrontendURL joins a path onto the configured frontend base URL
func (r *Renderer) FrontendURL(p string) string {
	return r.frontendURL + "/" + strings.TrimLeft(p, "/")
}

// Render fills TextContent and HTMLContent from msg.TemplateName
func (r *Renderer) Render(msg *Message) error {
	pair, ok := r.templates[msg.TemplateName]
	if !ok {
		return fmt.Errorf("unknown email template %q", msg.TemplateName)
	}

	data := ContextData{
		AppName:         r.appName,
		FrontendBaseURL: r.frontendURL,
		Data:            msg.TemplateData,
	}

	var text bytes.Buffer
	if err := pair.text.ExecuteTemplate(&text, "base", data); err != nil {
		return fmt.Errorf("failed to render %s text: %w", msg.TemplateName, err)
	}
	var html bytes.Buffer
	if err := pair.html.ExecuteTemplate(&html, "base", data); err != nil {
		return fmt.Errorf("failed to render %s html: %w", msg.TemplateName, err)
	}

	msg.TextContent = text.String()
	msg.HTMLContent = html.String()
	return nil
}

// NewSender builds the sender selected by configuration
func NewSender(cfg *config.EmailConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return NewLogSender(logger), nil
	case "sendgrid":
		if cfg.SendgridApiKey == "" {
			return nil, fmt.Errorf("sendgrid provider requires an API key")
		}
		return NewSendGridSender(cfg.SendgridApiKey, mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
