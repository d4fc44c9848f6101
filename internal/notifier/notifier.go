// Package notifier implementa el colaborador de email.
//
// El contrato del core: un único intento acotado por envío; el fallo del
// notifier nunca aborta ni revierte la operación primaria que lo disparó —
// se reporta como estado secundario (email_sent: false).
package notifier

import (
	"bytes"
	"context"
	"fmt"
	texttpl "text/template"
	"time"

	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/observability/logger"
)

// Sender envía un email ya compuesto.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Notifier compone y envía los emails del dominio de autenticación.
type Notifier interface {
	SendVerification(ctx context.Context, to, link string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error
}

type service struct {
	sender Sender
}

// New crea un Notifier sobre el Sender dado.
func New(sender Sender) Notifier {
	return &service{sender: sender}
}

var verifyTpl = texttpl.Must(texttpl.New("verify").Parse(
	"Hola,\n\nConfirmá tu dirección de email abriendo este enlace:\n\n{{.Link}}\n\nEl enlace vence en {{.TTL}}.\n"))

var resetTpl = texttpl.Must(texttpl.New("reset").Parse(
	"Hola,\n\nPara restablecer tu contraseña abrí este enlace:\n\n{{.Link}}\n\nEl enlace vence en {{.TTL}}. Si no pediste este cambio, ignorá este mensaje.\n"))

type linkVars struct {
	Link string
	TTL  string
}

func (s *service) SendVerification(ctx context.Context, to, link string, ttl time.Duration) error {
	return s.send(ctx, to, "Verificá tu email", verifyTpl, linkVars{Link: link, TTL: ttl.String()})
}

func (s *service) SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error {
	return s.send(ctx, to, "Restablecé tu contraseña", resetTpl, linkVars{Link: link, TTL: ttl.String()})
}

func (s *service) send(ctx context.Context, to, subject string, tpl *texttpl.Template, vars linkVars) error {
	log := logger.From(ctx).With(logger.Component("notifier"))

	var body bytes.Buffer
	if err := tpl.Execute(&body, vars); err != nil {
		return fmt.Errorf("notifier: render: %w", err)
	}

	if err := s.sender.Send(to, subject, "", body.String()); err != nil {
		metrics.NotifierFailures.Inc()
		log.Warn("email send failed", logger.Err(err))
		return fmt.Errorf("notifier: send: %w", err)
	}
	log.Debug("email sent")
	return nil
}

// Nop es un Notifier que no envía nada. Para tests y entornos sin SMTP.
type Nop struct{}

func (Nop) SendVerification(context.Context, string, string, time.Duration) error  { return nil }
func (Nop) SendPasswordReset(context.Context, string, string, time.Duration) error { return nil }
