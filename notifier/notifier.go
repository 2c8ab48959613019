// Package notifier delivers one-time login codes over SMTP.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"
)

// EmailNotifier sends branded OTP emails. Transient SMTP failures are
// retried with exponential backoff before giving up.
type EmailNotifier struct {
	config *Config
	dialer *gomail.Dialer
	logger zerolog.Logger
	tmpl   *template.Template
}

// Config holds SMTP configuration for sending codes.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"Ayushya <otp@app.goayu.life>"`

	Retries int           `env:"SMTP_RETRIES" envDefault:"3"`
	Backoff time.Duration `env:"SMTP_BACKOFF" envDefault:"500ms"`
}

// NewConfig creates a Config from environment variables.
func NewConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse notifier environment: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the required SMTP settings are present.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}

	return nil
}

// New creates an EmailNotifier with the given configuration.
func New(cfg *Config, logger zerolog.Logger) (*EmailNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &EmailNotifier{
		config: cfg,
		dialer: dialer,
		logger: logger.With().Str("component", "notifier").Logger(),
		tmpl:   template.Must(template.New("otp").Parse(otpBodyHTML)),
	}, nil
}

// SendCode delivers a one-time code to the given address.
func (n *EmailNotifier) SendCode(ctx context.Context, email, code string) error {
	body, err := n.renderBody(code)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.config.From)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("Your Ayushya OTP Code: %s", code))
	msg.SetBody("text/html", body)
	msg.AddAlternative("text/plain", renderText(code))

	backoff := retry.WithMaxRetries(
		uint64(n.config.Retries),
		retry.NewExponential(n.config.Backoff),
	)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := n.dialer.DialAndSend(msg); err != nil {
			n.logger.Debug().Err(err).Str("to", email).Msg("smtp send failed, will retry")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		n.logger.Error().Err(err).Str("to", email).Msg("failed to deliver code")
		return fmt.Errorf("failed to deliver code: %w", err)
	}

	n.logger.Info().Str("to", email).Msg("code delivered")

	return nil
}

func (n *EmailNotifier) renderBody(code string) (string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, struct{ Code string }{Code: code}); err != nil {
		return "", fmt.Errorf("failed to render otp body: %w", err)
	}
	return buf.String(), nil
}

func renderText(code string) string {
	return fmt.Sprintf("Your Ayushya verification code is %s. It expires in 10 minutes. If you did not request this code, you can ignore this email.", code)
}

const otpBodyHTML = `<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background-color: #f6f8f4; margin: 0; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
      <h1 style="color: #3c6e47; margin-top: 0;">Ayushya</h1>
      <p>Use this code to sign in:</p>
      <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #3c6e47;">{{.Code}}</p>
      <p>The code expires in 10 minutes.</p>
      <p style="color: #888888; font-size: 12px;">If you did not request this code, you can safely ignore this email.</p>
    </div>
  </body>
</html>`
