package email

import (
	"context"
	"errors"
)

// Notification es un correo saliente. HTML es opcional; Text siempre va.
type Notification struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender define la interfaz para envío de correos.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que falla siempre con reason.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Notification) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
