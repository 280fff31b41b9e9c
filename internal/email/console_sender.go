package email

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleLogSender vuelca correos al log en vez de enviarlos; útil en
// desarrollo cuando no hay SMTP disponible.
type ConsoleLogSender struct {
	logger *zap.Logger
}

func NewConsoleLogSender(logger *zap.Logger) *ConsoleLogSender {
	return &ConsoleLogSender{logger: logger}
}

func (s *ConsoleLogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("email (console sender)",
		zap.String("to", n.To),
		zap.String("subject", n.Subject),
		zap.String("text", n.Text),
	)
	return nil
}
