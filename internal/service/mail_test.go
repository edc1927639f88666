package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"matriesfinance/platform-api/model"
)

func newTestMailer(t *testing.T, env *testEnv) (*TemplateMailer, *[]*gomail.Message) {
	t.Helper()

	m := NewTemplateMailer(env.store, MailConfig{
		Host:    "localhost",
		Port:    2525,
		From:    "noreply@example.com",
		SiteURL: "https://app.example.com/",
	})

	var sent []*gomail.Message
	m.send = func(msgs ...*gomail.Message) error {
		sent = append(sent, msgs...)
		return nil
	}

	return m, &sent
}

func body(t *testing.T, m *gomail.Message) string {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	return buf.String()
}

func TestSendTemplate(t *testing.T) {
	env := newTestEnv(t)
	m, sent := newTestMailer(t, env)

	err := m.SendTemplate(context.Background(), "a@example.com", "EmailVerification", map[string]string{
		"FIRSTNAME":  "Ada",
		"CREATED_AT": "Mon, 01 Jan 2024",
		"TOKEN":      "tok123",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, []string{"a@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Please verify your email"}, msg.GetHeader("Subject"))

	assert.Contains(t, body(t, msg), "Content-Type: text/html")

	_, html, err := m.render(context.Background(), "EmailVerification", map[string]string{
		"FIRSTNAME":  "Ada",
		"CREATED_AT": "Mon, 01 Jan 2024",
		"TOKEN":      "tok123",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Dear Ada")
	assert.Contains(t, html, "on Mon, 01 Jan 2024")
	assert.Contains(t, html, "https://app.example.com/confirm/verifyemail?token=tok123")
	assert.NotContains(t, html, "%")
}

func TestRenderEscapesValues(t *testing.T) {
	env := newTestEnv(t)
	m, _ := newTestMailer(t, env)

	_, body, err := m.render(context.Background(), "EmailVerification", map[string]string{
		"FIRSTNAME":  `<a href="https://evil.example">Ada</a>`,
		"CREATED_AT": "Mon, 01 Jan 2024",
		"TOKEN":      "tok123",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "evil.example\">")
	assert.Contains(t, body, "&lt;a href=&#34;https://evil.example&#34;&gt;Ada&lt;/a&gt;")
	assert.Contains(t, body, "https://app.example.com/confirm/verifyemail?token=tok123")
}

func TestSendTemplateMissingShortCode(t *testing.T) {
	env := newTestEnv(t)
	m, sent := newTestMailer(t, env)

	err := m.SendTemplate(context.Background(), "a@example.com", "PasswordReset", map[string]string{
		"FIRSTNAME": "Ada",
		"TOKEN":     "tok",
	})
	assert.ErrorIs(t, err, ErrMissingShortCode)
	assert.ErrorContains(t, err, "LAST_LOGIN")
	assert.Empty(t, *sent)
}

func TestSendTemplateErrors(t *testing.T) {
	env := newTestEnv(t)
	m, _ := newTestMailer(t, env)
	ctx := context.Background()

	require.NoError(t, env.store.DB().Create(&model.NotificationTemplate{Name: "Muted", Subject: "x"}).Error)
	require.NoError(t, env.store.DB().Model(&model.NotificationTemplate{}).Where("name = ?", "Muted").Update("email", false).Error)

	assert.ErrorIs(t, m.SendTemplate(ctx, "a@example.com", "Muted", nil), ErrTemplateDisabled)
	assert.Error(t, m.SendTemplate(ctx, "a@example.com", "Unknown", nil))
	assert.Error(t, m.SendTemplate(ctx, "noreply@example.com", "EmailVerification", nil))

	m.send = func(...*gomail.Message) error { return errors.New("dial tcp: refused") }
	err := m.SendTemplate(ctx, "a@example.com", "EmailVerification", map[string]string{
		"FIRSTNAME": "Ada", "CREATED_AT": "now", "TOKEN": "t",
	})
	assert.ErrorContains(t, err, "refused")
}
