package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
)

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
	Timeout     time.Duration
}

const (
	smsAttempts = 3
	smsBackoff  = 250 * time.Millisecond
)

var ErrSMSNotConfigured = errors.New("twilio is not configured")

// TwilioSender posts messages to the Twilio REST API. Network failures,
// throttling and 5xx answers are retried with exponential backoff.
type TwilioSender struct {
	client  *resty.Client
	cfg     TwilioConfig
	backoff time.Duration
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	return &TwilioSender{client: c, cfg: cfg, backoff: smsBackoff}
}

func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	if t.cfg.AccountSID == "" || t.cfg.PhoneNumber == "" {
		return ErrSMSNotConfigured
	}

	b := retry.WithMaxRetries(smsAttempts-1, retry.NewExponential(t.backoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := t.client.R().
			SetContext(ctx).
			SetPathParam("sid", t.cfg.AccountSID).
			SetFormData(map[string]string{
				"To":   to,
				"From": t.cfg.PhoneNumber,
				"Body": body,
			}).
			SetError(&twilioError{}).
			Post("/2010-04-01/Accounts/{sid}/Messages.json")
		if err != nil {
			return retry.RetryableError(fmt.Errorf("twilio request, %w", err))
		}

		if !resp.IsError() {
			return nil
		}

		err = fmt.Errorf("twilio responded %d", resp.StatusCode())
		if e, ok := resp.Error().(*twilioError); ok && e.Message != "" {
			err = fmt.Errorf("twilio responded %d: %s (code %d)", resp.StatusCode(), e.Message, e.Code)
		}

		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return retry.RetryableError(err)
		}

		return err
	})
}
