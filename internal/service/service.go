// Package service implements the authentication and session workflow:
// registration, logins with optional two factor, logout, email verification,
// password reset, profile updates and session refresh.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v2"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

// Cookie names. They are always set and cleared together.
const (
	CookieAccessToken  = "access-token"
	CookieRefreshToken = "refresh-token"
	CookieSessionID    = "session-id"
	CookieCSRFToken    = "csrf-token"
)

const (
	msgLoggedIn       = "You have been logged in successfully"
	msgLoggedOut      = "You have been logged out"
	msgUserCreated    = "User created successfully"
	msgAccountCreated = "New account created successfully"
	msgTwoFactor      = "2FA required"
	msgOTPSent        = "OTP sent successfully"
	msgTokenVerified  = "Token verified successfully"
	msgSessionRenewed = "Session refreshed successfully"
	msgVerifySent     = "Email with verification instructions sent successfully"
	msgResetSent      = "Email with reset instructions sent successfully"
)

// Cookies is the session material handed to the client. The zero value
// clears every cookie.
type Cookies struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	CSRFToken    string
}

// Map returns all four cookies keyed by name, including empty ones.
func (c Cookies) Map() map[string]string {
	return map[string]string{
		CookieAccessToken:  c.AccessToken,
		CookieRefreshToken: c.RefreshToken,
		CookieSessionID:    c.SessionID,
		CookieCSRFToken:    c.CSRFToken,
	}
}

// TwoFactorChallenge is returned instead of cookies while a login waits for
// its one-time password.
type TwoFactorChallenge struct {
	Enabled bool                `json:"enabled"`
	Type    model.TwoFactorType `json:"type"`
	Secret  string              `json:"secret"`
}

type AuthResult struct {
	Message string `json:"message"`
	Cookies Cookies `json:"-"`

	// Set only while the login is pending a one-time password
	TwoFactor *TwoFactorChallenge `json:"twofactor,omitempty"`
	UUID      string              `json:"uuid,omitempty"`

	// Set only by a verified password reset
	Password string `json:"password,omitempty"`
}

// Pending reports whether the result is a two factor challenge rather than
// an issued session.
func (r *AuthResult) Pending() bool { return r.TwoFactor != nil }

type Options struct {
	MaxFailedLogins int
	LockoutWindow   time.Duration
	// How long a login that passed the password check waits for its OTP
	ChallengeTTL time.Duration
	// Issuer shown in authenticator apps
	TOTPIssuer string
}

type Deps struct {
	Store   *store.Store
	OneTime store.OneTimeTokenStore
	Tokens  *security.TokenIssuer
	Argon   *security.ArgonHash
	Mailer  Mailer
	SMS     SMSSender
	// Optional, avatar uploads fail without it
	Avatars AvatarStorage
}

type AuthService struct {
	store   *store.Store
	onetime store.OneTimeTokenStore
	tokens  *security.TokenIssuer
	argon   *security.ArgonHash
	mailer  Mailer
	sms     SMSSender
	avatars AvatarStorage

	// Capability sets keyed by session id
	caps *ttlcache.Cache

	opts Options
	now  func() time.Time
}

func New(d Deps, opts Options) (*AuthService, error) {
	if d.Store == nil || d.OneTime == nil || d.Tokens == nil || d.Argon == nil {
		return nil, errors.New("store, one-time store, token issuer and hasher are required")
	}

	if d.Mailer == nil || d.SMS == nil {
		return nil, errors.New("mailer and sms sender are required")
	}

	if opts.MaxFailedLogins <= 0 {
		opts.MaxFailedLogins = 5
	}

	if opts.LockoutWindow <= 0 {
		opts.LockoutWindow = 5 * time.Minute
	}

	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = 2 * time.Minute
	}

	if opts.TOTPIssuer == "" {
		opts.TOTPIssuer = "Platform"
	}

	caps := ttlcache.NewCache()
	caps.SkipTTLExtensionOnHit(true)

	return &AuthService{
		store:   d.Store,
		onetime: d.OneTime,
		tokens:  d.Tokens,
		argon:   d.Argon,
		mailer:  d.Mailer,
		sms:     d.SMS,
		avatars: d.Avatars,
		caps:    caps,
		opts:    opts,
		now:     time.Now,
	}, nil
}

// Close releases the capability cache.
func (s *AuthService) Close() error {
	return s.caps.Close()
}

// issueSession creates the access, refresh and CSRF tokens for u and
// persists the session and refresh token together.
func (s *AuthService) issueSession(ctx context.Context, st *store.Store, u *model.User) (Cookies, error) {
	pub := u.Public()

	access, err := s.tokens.IssueAccessToken(pub)
	if err != nil {
		return Cookies{}, err
	}

	refresh, err := s.tokens.IssueRefreshToken(pub)
	if err != nil {
		return Cookies{}, err
	}

	csrf, err := s.tokens.IssueCSRFToken()
	if err != nil {
		return Cookies{}, fmt.Errorf("failed to generate csrf token, %w", err)
	}

	expiresAt := s.now().Add(s.tokens.RefreshTTL())

	var sid string
	err = st.Transaction(ctx, func(tx *store.Store) error {
		sess, err := tx.CreateSession(ctx, u.ID, access, csrf, expiresAt)
		if err != nil {
			return err
		}
		sid = sess.SID

		return tx.StoreRefreshToken(ctx, u.ID, refresh, expiresAt)
	})
	if err != nil {
		return Cookies{}, err
	}

	return Cookies{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sid,
		CSRFToken:    csrf,
	}, nil
}

func (s *AuthService) loggedIn(ctx context.Context, u *model.User, msg string) (*AuthResult, error) {
	cookies, err := s.issueSession(ctx, s.store, u)
	if err != nil {
		return nil, internal(err)
	}

	return &AuthResult{Message: msg, Cookies: cookies}, nil
}

var newUUID = uuid.NewString

// findUser maps a missing row to ErrUserNotFound and anything else to an
// internal error.
func findUser(u *model.User, err error) (*model.User, error) {
	if err == nil {
		return u, nil
	}

	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}

	return nil, internal(err)
}

func sameToken(sess *model.Session, token string) bool {
	return subtle.ConstantTimeCompare([]byte(sess.AccessTokenHash), []byte(security.HashToken(token))) == 1
}
