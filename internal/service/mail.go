package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"matriesfinance/platform-api/internal/store"
)

var (
	ErrMissingShortCode = errors.New("template short code has no value")
	ErrTemplateDisabled = errors.New("template is not enabled for email")
)

// Mailer sends one of the stored notification templates.
type Mailer interface {
	SendTemplate(ctx context.Context, to, name string, vars map[string]string) error
}

type MailConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	// Base URL of the frontend, substituted for %URL%
	SiteURL string
}

// TemplateMailer renders templates from the database and sends them over
// SMTP.
type TemplateMailer struct {
	store   *store.Store
	from    string
	siteURL string
	send    func(m ...*gomail.Message) error
}

func NewTemplateMailer(st *store.Store, cfg MailConfig) *TemplateMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password)

	return &TemplateMailer{
		store:   st,
		from:    cfg.From,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		send:    d.DialAndSend,
	}
}

// SendTemplate fills every short code the template declares from vars and
// mails the result to to. A declared short code missing from vars is an
// error.
func (m *TemplateMailer) SendTemplate(ctx context.Context, to, name string, vars map[string]string) error {
	if to == "" || to == m.from {
		return errors.New("invalid email address")
	}

	subject, body, err := m.render(ctx, name, vars)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send %s email, %w", name, err)
	}

	return nil
}

func (m *TemplateMailer) render(ctx context.Context, name string, vars map[string]string) (subject, body string, err error) {
	tpl, err := m.store.FindTemplate(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("failed to load template %s, %w", name, err)
	}

	if !tpl.Email {
		return "", "", fmt.Errorf("%w: %s", ErrTemplateDisabled, name)
	}

	codes, err := tpl.Codes()
	if err != nil {
		return "", "", fmt.Errorf("failed to parse short codes of %s, %w", name, err)
	}

	// The body is HTML, so values go in escaped. The subject is plain text.
	plain := []string{"%URL%", m.siteURL}
	escaped := []string{"%URL%", m.siteURL}
	for _, code := range codes {
		v, ok := vars[code]
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrMissingShortCode, code)
		}

		plain = append(plain, "%"+code+"%", v)
		escaped = append(escaped, "%"+code+"%", html.EscapeString(v))
	}

	return strings.NewReplacer(plain...).Replace(tpl.Subject), strings.NewReplacer(escaped...).Replace(tpl.EmailBody), nil
}
