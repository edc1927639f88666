package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTwilio(url string) *TwilioSender {
	s := NewTwilioSender(TwilioConfig{
		AccountSID:  "AC123",
		AuthToken:   "secret",
		PhoneNumber: "+15550000",
		BaseURL:     url,
		Timeout:     time.Second,
	})
	s.backoff = time.Millisecond

	return s
}

func TestTwilioSend(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	err := newTestTwilio(srv.URL).Send(context.Background(), "+15551111", "Your OTP is: 123456")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.URL.Path)
	assert.Equal(t, "+15551111", got.PostForm.Get("To"))
	assert.Equal(t, "+15550000", got.PostForm.Get("From"))
	assert.Equal(t, "Your OTP is: 123456", got.PostForm.Get("Body"))

	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
}

func TestTwilioRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, newTestTwilio(srv.URL).Send(context.Background(), "+1", "hi"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTwilioGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, newTestTwilio(srv.URL).Send(context.Background(), "+1", "hi"))
	assert.Equal(t, int32(smsAttempts), calls.Load())
}

func TestTwilioClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	err := newTestTwilio(srv.URL).Send(context.Background(), "bad", "hi")
	assert.ErrorContains(t, err, "Invalid 'To' Phone Number")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTwilioNotConfigured(t *testing.T) {
	s := NewTwilioSender(TwilioConfig{})
	assert.ErrorIs(t, s.Send(context.Background(), "+1", "hi"), ErrSMSNotConfigured)
}
