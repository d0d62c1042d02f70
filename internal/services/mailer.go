package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/wneessen/go-mail"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// LogMailer writes mails to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Mail delivery disabled, message logged: " + strings.ReplaceAll(body, "\n", " "))
	return nil
}

// InvitationMail renders the invitation email for a sign-up link.
func InvitationMail(inviterName, companyName, link string) (subject, body string) {
	subject = "You have been invited to Tripwise"

	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\n%s invited you to Tripwise", inviterName)
	if companyName != "" {
		fmt.Fprintf(&b, " for %s", companyName)
	}
	fmt.Fprintf(&b, ".\n\nCreate your account here:\n%s\n\nThe link expires in a few days.\n", link)

	return subject, b.String()
}
