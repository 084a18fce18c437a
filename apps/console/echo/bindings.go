package consoleapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/edutracks/console/core"
)

type (
	LoginForm struct {
		Email    string `form:"email" validate:"required,email"`
		Password string `form:"password" validate:"required"`
		Remember string `form:"remember"` // checkbox: "on" when ticked
	}

	RegisterForm struct {
		Name      string `form:"name" validate:"required,max=120"`
		Email     string `form:"email" validate:"required,email"`
		Password  string `form:"password" validate:"required,min=8"`
		Password2 string `form:"password2" validate:"required_with=Password,eqfield=Password"`
	}

	ForgotForm struct {
		Email string `form:"email" validate:"required,email"`
	}

	// ResetForm carries the uid and token of the emailed reset link in hidden fields.
	ResetForm struct {
		UID       string `form:"uid" query:"uid" validate:"required"`
		Token     string `form:"token" query:"token" validate:"required"`
		Password  string `form:"password" validate:"required,min=8"`
		Password2 string `form:"password2" validate:"required_with=Password,eqfield=Password"`
	}
)

func (f *LoginForm) RememberMe() bool {
	switch f.Remember {
	case "on", "true", "1":
		return true
	}
	return false
}

func (f *LoginForm) Validate(validate *validator.Validate) error {
	f.Email = core.CleanString(f.Email, true /* lower */)
	return validate.Struct(f)
}

func (f *RegisterForm) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	f.Email = core.CleanString(f.Email, true /* lower */)
	return validate.Struct(f)
}

func (f *ForgotForm) Validate(validate *validator.Validate) error {
	f.Email = core.CleanString(f.Email, true /* lower */)
	return validate.Struct(f)
}

func (f *ResetForm) Validate(validate *validator.Validate) error {
	f.UID = core.CleanString(f.UID)
	f.Token = core.CleanString(f.Token)
	return validate.Struct(f)
}
