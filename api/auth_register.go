package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matriesfinance/platform-api/internal/service"
	"matriesfinance/platform-api/validators"
)

type registerBody struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Ref       string `json:"ref"`
}

func (a *API) AuthRegister(c *gin.Context) {
	var data registerBody
	if !bind(c, &data) {
		return
	}

	if data.FirstName == "" || data.LastName == "" {
		badRequest(c, "First and last name can't be empty")
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := a.Auth.RegisterUser(c.Request.Context(), service.RegisterInput{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Password:  data.Password,
		Ref:       data.Ref,
	})
	if err != nil {
		fail(c, err, "Failed to register user")
		return
	}

	a.respondAuth(c, res, http.StatusCreated)
}
