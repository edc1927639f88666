package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"matriesfinance/platform-api/internal/service"
	"matriesfinance/platform-api/pkg/middleware"
)

// statusFor maps a service error kind to the HTTP status it is answered
// with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPolicyViolation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail answers with the error's public message. Dependency failures are
// logged with their cause and answered with a generic message.
func fail(c *gin.Context, err error, logMsg string) {
	requestID := middleware.RequestID(c)
	status := statusFor(err)

	msg := "Internal server error"

	if status == http.StatusInternalServerError {
		zap.L().Error(logMsg, zap.Error(err), zap.String("requestID", requestID))
	} else {
		zap.L().Debug(logMsg, zap.Error(err), zap.String("requestID", requestID))

		var se *service.Error
		if errors.As(err, &se) {
			msg = se.Message()
		}
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": requestID,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     msg,
		"requestID": middleware.RequestID(c),
	})
}

// bind decodes the JSON body into data and answers the request itself when
// that fails.
func bind(c *gin.Context, data any) bool {
	err := c.ShouldBindJSON(data)
	if err == nil {
		return true
	}

	if middleware.IsBodyTooLarge(err) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Request body size exceeds limit",
			"requestID": middleware.RequestID(c),
		})
		return false
	}

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", middleware.RequestID(c)))
	badRequest(c, "Invalid request body")
	return false
}

// setCookies writes all four session cookies. Only the CSRF token is
// readable from scripts, the frontend echoes it in X-CSRF-Token.
func (a *API) setCookies(c *gin.Context, cookies service.Cookies) {
	a.writeCookies(c, cookies, int(a.cfg.CookieTTL.Seconds()))
}

// clearCookies expires all four session cookies.
func (a *API) clearCookies(c *gin.Context) {
	a.writeCookies(c, service.Cookies{}, -1)
}

func (a *API) writeCookies(c *gin.Context, cookies service.Cookies, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)

	for name, value := range cookies.Map() {
		httpOnly := name != service.CookieCSRFToken
		c.SetCookie(name, value, maxAge, "/", a.cfg.CookieDomain, a.cfg.Secure, httpOnly)
	}
}

// respondAuth sends a login style result. Pending two factor logins get the
// challenge and no cookies.
func (a *API) respondAuth(c *gin.Context, res *service.AuthResult, status int) {
	if res.Pending() {
		c.JSON(http.StatusOK, res)
		return
	}

	a.setCookies(c, res.Cookies)
	c.JSON(status, res)
}
