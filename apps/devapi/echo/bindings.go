package devapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/edutracks/console/core"
)

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token    string `json:"token"`
		Role     string `json:"role"`
		Username string `json:"username"`
	}

	RegisterRequest struct {
		Name     string `json:"name" form:"name" validate:"required,max=120"`
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required,min=8"`
		Role     string `json:"role" form:"role"`
	}

	ForgotRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}

	ResetRequest struct {
		UID      string `json:"uid" form:"uid" validate:"required"`
		Token    string `json:"token" form:"token" validate:"required"`
		Password string `json:"password" form:"password" validate:"required,min=8"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *RegisterRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Role = core.CleanString(r.Role)
	return validate.Struct(r)
}

func (r *ForgotRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *ResetRequest) Validate(validate *validator.Validate) error {
	r.UID = core.CleanString(r.UID)
	r.Token = core.CleanString(r.Token)
	return validate.Struct(r)
}
