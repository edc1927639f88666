package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matriesfinance/platform-api/internal/service"
	"matriesfinance/platform-api/pkg/middleware"
)

func (a *API) AuthLogout(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	res, err := a.Auth.LogoutUser(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err, "Failed to log out user")
		return
	}

	a.clearCookies(c)
	c.JSON(http.StatusOK, res)
}

// AuthRefresh trades the refresh-token and session-id cookies for a new
// session. A rejected refresh clears the cookies so the client logs in
// again.
func (a *API) AuthRefresh(c *gin.Context) {
	refresh, _ := c.Cookie(service.CookieRefreshToken)
	sid, _ := c.Cookie(service.CookieSessionID)

	res, err := a.Auth.RefreshSession(c.Request.Context(), refresh, sid)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			a.clearCookies(c)
		}

		fail(c, err, "Failed to refresh session")
		return
	}

	a.respondAuth(c, res, http.StatusOK)
}
