package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"tryon-backend/internal/infra"
)

// Mailer sends verification emails through SendGrid. When no API key is
// configured the mailer is disabled; callers are expected to auto-verify
// accounts instead of leaving them stranded.
type Mailer struct {
	apiKey   string
	from     string
	fromName string
	logger   *infra.Logger
}

// Options configures the mailer.
type Options struct {
	APIKey   string
	From     string
	FromName string
	Logger   *infra.Logger
}

// New builds a Mailer; an empty API key yields a disabled instance.
func New(opts Options) *Mailer {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	fromName := opts.FromName
	if fromName == "" {
		fromName = "Virtual Try-On"
	}
	return &Mailer{
		apiKey:   opts.APIKey,
		from:     opts.From,
		fromName: fromName,
		logger:   logger,
	}
}

// Enabled reports whether outbound email is configured.
func (m *Mailer) Enabled() bool {
	return m.apiKey != "" && m.from != ""
}

// SendVerificationCode emails a 6-digit code to the user. Calling it on a
// disabled mailer logs the code instead so local setups stay usable.
func (m *Mailer) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	if !m.Enabled() {
		m.logger.Info().
			Str("email", toEmail).
			Str("code", code).
			Msg("mailer: email disabled, verification code logged only")
		return nil
	}

	from := mail.NewEmail(m.fromName, m.from)
	to := mail.NewEmail(toName, toEmail)
	subject := "Verify your email address"
	plain := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 15 minutes.</p>", code)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("mailer: send verification email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	m.logger.Debug().Str("email", toEmail).Msg("mailer: verification email sent")
	return nil
}
