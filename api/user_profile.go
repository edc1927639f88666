package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"matriesfinance/platform-api/internal/service"
	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/middleware"
	"matriesfinance/platform-api/validators"
)

const avatarField = "avatar"

func (a *API) UserFetch(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	u, err := a.Auth.GetUser(c.Request.Context(), p.UserID, p.SessionID)
	if err != nil {
		fail(c, err, "Failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, u)
}

type updateBody struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Metadata        *string `json:"metadata"`
	Avatar          *string `json:"avatar"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword *string `json:"current_password"`
}

func (a *API) UserUpdate(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	var data updateBody
	if !bind(c, &data) {
		return
	}

	if data.Email != nil && *data.Email != "" {
		if err := validators.EmailValidator(*data.Email); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	if data.Password != nil && *data.Password != "" {
		if err := validators.PasswordValidator(*data.Password); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	err := a.Auth.UpdateUser(c.Request.Context(), p.UserID, service.UpdateInput{
		FirstName:       data.FirstName,
		LastName:        data.LastName,
		Metadata:        data.Metadata,
		Avatar:          data.Avatar,
		Email:           data.Email,
		Password:        data.Password,
		CurrentPassword: data.CurrentPassword,
	})
	if err != nil {
		fail(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// UserAvatar accepts a multipart form with the image in the avatar field.
func (a *API) UserAvatar(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	fh, err := c.FormFile(avatarField)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"requestID": middleware.RequestID(c),
			})
			return
		}

		badRequest(c, "No avatar provided")
		return
	}

	if fh.Size > service.MaxAvatarSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Request body size exceeds limit",
			"requestID": middleware.RequestID(c),
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, errors.Join(service.ErrInternal, err), "Failed to open uploaded avatar")
		return
	}
	defer f.Close()

	url, err := a.Auth.UploadAvatar(c.Request.Context(), p.UserID, f)
	if err != nil {
		fail(c, err, "Failed to upload avatar")
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

type twoFactorBody struct {
	Type model.TwoFactorType `json:"type" binding:"required,oneof=APP SMS"`
}

func (a *API) UserEnableTwoFactor(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	var data twoFactorBody
	if !bind(c, &data) {
		return
	}

	setup, err := a.Auth.EnableTwoFactor(c.Request.Context(), p.UserID, data.Type)
	if err != nil {
		fail(c, err, "Failed to enable two factor")
		return
	}

	c.JSON(http.StatusOK, setup)
}

func (a *API) UserDisableTwoFactor(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	if err := a.Auth.DisableTwoFactor(c.Request.Context(), p.UserID); err != nil {
		fail(c, err, "Failed to disable two factor")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Two factor authentication disabled"})
}
