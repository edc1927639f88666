package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matriesfinance/platform-api/pkg/middleware"
	"matriesfinance/platform-api/validators"
)

type emailBody struct {
	Email string `json:"email"`
}

type tokenBody struct {
	Token string `json:"token" binding:"required"`
}

// AuthSendEmailVerification mails a verification link to the caller. The
// address in the body has to be the one on record.
func (a *API) AuthSendEmailVerification(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	var data emailBody
	if !bind(c, &data) {
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := a.Auth.SendEmailVerificationToken(c.Request.Context(), p.UserID, data.Email)
	if err != nil {
		fail(c, err, "Failed to send verification email")
		return
	}

	c.JSON(http.StatusOK, res)
}

func (a *API) AuthVerifyEmail(c *gin.Context) {
	var data tokenBody
	if !bind(c, &data) {
		return
	}

	res, err := a.Auth.VerifyEmailToken(c.Request.Context(), data.Token)
	if err != nil {
		fail(c, err, "Failed to verify email token")
		return
	}

	c.JSON(http.StatusOK, res)
}

func (a *API) AuthResetPassword(c *gin.Context) {
	var data emailBody
	if !bind(c, &data) {
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := a.Auth.ResetPassword(c.Request.Context(), data.Email)
	if err != nil {
		fail(c, err, "Failed to send password reset email")
		return
	}

	c.JSON(http.StatusOK, res)
}

// AuthVerifyPasswordReset answers with the generated password. Every
// session of the user was revoked, so the cookies go too.
func (a *API) AuthVerifyPasswordReset(c *gin.Context) {
	var data tokenBody
	if !bind(c, &data) {
		return
	}

	res, err := a.Auth.VerifyPasswordReset(c.Request.Context(), data.Token)
	if err != nil {
		fail(c, err, "Failed to reset password")
		return
	}

	a.clearCookies(c)
	c.JSON(http.StatusOK, res)
}
