package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"matriesfinance/platform-api/model"
)

const (
	csrfTokenSize = 32

	audienceAccess  = "access"
	audienceRefresh = "refresh"
	audienceEmail   = "email_verify"
	audienceReset   = "password_reset"
)

var ErrNoSecret = errors.New("token secret is empty")

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	EmailSecret   string
	ResetSecret   string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
	ResetTTL   time.Duration
}

// SessionClaims are carried by access and refresh tokens. Only the public
// projection of a user ever goes in here.
type SessionClaims struct {
	ID   uint `json:"id"`
	Role uint `json:"role"`
	jwt.RegisteredClaims
}

type TokenUser struct {
	UUID string `json:"uuid"`
}

// OneTimeClaims are carried by email verification and password reset tokens.
// RegisteredClaims.ID holds the jti used for replay detection.
type OneTimeClaims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	cfg TokenConfig
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.EmailSecret == "" || cfg.ResetSecret == "" {
		return nil, ErrNoSecret
	}

	return &TokenIssuer{cfg: cfg}, nil
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.cfg.AccessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.cfg.RefreshTTL }

func (t *TokenIssuer) IssueAccessToken(u model.PublicUser) (string, error) {
	return t.signSession(u, audienceAccess, t.cfg.AccessTTL, t.cfg.AccessSecret)
}

func (t *TokenIssuer) IssueRefreshToken(u model.PublicUser) (string, error) {
	return t.signSession(u, audienceRefresh, t.cfg.RefreshTTL, t.cfg.RefreshSecret)
}

func (t *TokenIssuer) VerifyAccessToken(token string) (*SessionClaims, error) {
	return parse(token, &SessionClaims{}, audienceAccess, t.cfg.AccessSecret)
}

func (t *TokenIssuer) VerifyRefreshToken(token string) (*SessionClaims, error) {
	return parse(token, &SessionClaims{}, audienceRefresh, t.cfg.RefreshSecret)
}

func (t *TokenIssuer) IssueEmailToken(userUUID string) (string, error) {
	return t.signOneTime(userUUID, audienceEmail, t.cfg.EmailTTL, t.cfg.EmailSecret)
}

func (t *TokenIssuer) IssueResetToken(userUUID string) (string, error) {
	return t.signOneTime(userUUID, audienceReset, t.cfg.ResetTTL, t.cfg.ResetSecret)
}

// VerifyEmailToken returns nil for any token that is malformed, tampered with
// or expired. Callers answer all of those the same way.
func (t *TokenIssuer) VerifyEmailToken(token string) *OneTimeClaims {
	return verifyOneTime(token, audienceEmail, t.cfg.EmailSecret)
}

func (t *TokenIssuer) VerifyResetToken(token string) *OneTimeClaims {
	return verifyOneTime(token, audienceReset, t.cfg.ResetSecret)
}

// IssueCSRFToken returns an opaque random value. It is not bound to any user.
func (t *TokenIssuer) IssueCSRFToken() (string, error) {
	return GenerateToken(csrfTokenSize)
}

func (t *TokenIssuer) signSession(u model.PublicUser, aud string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		ID:   u.ID,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token, %w", aud, err)
	}

	return s, nil
}

func (t *TokenIssuer) signOneTime(userUUID, aud string, ttl time.Duration, secret string) (string, error) {
	if userUUID == "" {
		return "", errors.New("no user uuid provided")
	}

	now := time.Now()
	claims := &OneTimeClaims{
		User: TokenUser{UUID: userUUID},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token, %w", aud, err)
	}

	return s, nil
}

func verifyOneTime(token, aud, secret string) *OneTimeClaims {
	claims, err := parse(token, &OneTimeClaims{}, aud, secret)
	if err != nil {
		return nil
	}

	if claims.ID == "" || claims.User.UUID == "" || claims.ExpiresAt == nil {
		return nil
	}

	return claims
}

func parse[T jwt.Claims](token string, claims T, aud, secret string) (T, error) {
	var zero T

	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(aud),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return zero, fmt.Errorf("failed to parse token, %w", err)
	}

	if !t.Valid {
		return zero, errors.New("token invalid")
	}

	return claims, nil
}

// GenerateToken returns n random bytes hex encoded
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// HashToken is used wherever a bearer token is persisted, so a database leak
// doesn't hand out working tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
