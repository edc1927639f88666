package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matriesfinance/platform-api/validators"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) AuthLogin(c *gin.Context) {
	var data loginBody
	if !bind(c, &data) {
		return
	}

	if data.Email == "" {
		badRequest(c, "Email field can't be empty")
		return
	}

	if data.Password == "" {
		badRequest(c, "Password field can't be empty")
		return
	}

	res, err := a.Auth.LoginUser(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		fail(c, err, "Failed to log in user")
		return
	}

	a.respondAuth(c, res, http.StatusOK)
}

type otpBody struct {
	UUID string `json:"uuid" binding:"required"`
	OTP  string `json:"otp" binding:"required,len=6"`
}

func (a *API) AuthLoginOTP(c *gin.Context) {
	var data otpBody
	if !bind(c, &data) {
		return
	}

	res, err := a.Auth.VerifyLoginOTP(c.Request.Context(), data.UUID, data.OTP)
	if err != nil {
		fail(c, err, "Failed to verify OTP")
		return
	}

	a.respondAuth(c, res, http.StatusOK)
}

type resendBody struct {
	UUID   string `json:"uuid"`
	Secret string `json:"secret"`
}

func (a *API) AuthResendOTP(c *gin.Context) {
	var data resendBody
	if !bind(c, &data) {
		return
	}

	res, err := a.Auth.ResendOTP(c.Request.Context(), data.UUID, data.Secret)
	if err != nil {
		fail(c, err, "Failed to resend OTP")
		return
	}

	c.JSON(http.StatusOK, res)
}

type walletBody struct {
	Address string `json:"address"`
}

func (a *API) AuthLoginWallet(c *gin.Context) {
	var data walletBody
	if !bind(c, &data) {
		return
	}

	if err := validators.WalletValidator(data.Address); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := a.Auth.LoginUserWithWallet(c.Request.Context(), data.Address)
	if err != nil {
		fail(c, err, "Failed to log in with wallet")
		return
	}

	a.respondAuth(c, res, http.StatusOK)
}
