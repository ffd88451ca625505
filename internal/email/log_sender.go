package email

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
// It also keeps every message so tests can inspect what was sent.
type LogSender struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.Info("email (log provider)",
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.TemplateName),
		zap.String("body", msg.TextContent),
	)

	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages sent so far
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
