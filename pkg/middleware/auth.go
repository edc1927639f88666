package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"matriesfinance/platform-api/internal/service"
)

const (
	PrincipalKey = "principal"
	UserIDKey    = "userID"
	CSRFHeader   = "X-CSRF-Token"
)

// Authenticator resolves session cookies to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, sid string) (*service.Principal, error)
}

// NewAuthMiddleware rejects requests without a live session. Requests that
// change state must also carry the CSRF token in X-CSRF-Token, matching
// both the csrf-token cookie and the token stored with the session.
func NewAuthMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := RequestID(c)

		access, _ := c.Cookie(service.CookieAccessToken)
		sid, _ := c.Cookie(service.CookieSessionID)

		p, err := a.Authenticate(c.Request.Context(), access, sid)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredential) {
				abort(c, http.StatusUnauthorized, "Authorization token invalid")
				return
			}

			abort(c, http.StatusInternalServerError, "Internal server error")
			zap.L().Error("Failed to authenticate request", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if !safeMethod(c.Request.Method) && !validCSRF(c, p) {
			abort(c, http.StatusForbidden, "Invalid CSRF token")
			return
		}

		c.Set(PrincipalKey, p)
		c.Set(UserIDKey, strconv.FormatUint(uint64(p.UserID), 10))
		c.Next()
	}
}

// GetPrincipal returns the caller set by the auth middleware.
func GetPrincipal(c *gin.Context) *service.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}

	p, _ := v.(*service.Principal)
	return p
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func validCSRF(c *gin.Context, p *service.Principal) bool {
	header := c.GetHeader(CSRFHeader)
	cookie, _ := c.Cookie(service.CookieCSRFToken)

	if header == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) == 1 &&
		subtle.ConstantTimeCompare([]byte(header), []byte(p.CSRFToken)) == 1
}
