package consoleapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/services/backend"
)

const (
	pageLogin    = "login"
	pageRegister = "register"
	pageForgot   = "forgot"
	pageReset    = "reset"

	forgotSentMessage = "If an account exists for this address, a reset link is on its way."
)

func (s *server) login(ctx echo.Context) error {
	var form LoginForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginForm")
	}
	if err := form.Validate(s.Validate); err != nil {
		return newFormError(pageLogin, &form, http.StatusBadRequest, err)
	}

	res, err := s.Backend.Login(ctx.Request().Context(), form.Email, form.Password)
	if err != nil {
		return s.backendFormError(pageLogin, &form, err)
	}

	store := getContextStore(ctx)
	store.Login(ctx.Request().Context(), res.Token, res.Role, res.Username, form.RememberMe())
	s.Metrics.ObserveLogin(res.Role, form.RememberMe())

	// the token may already be expired or carry no role; the guards decide where it lands
	target := role.LandingPath(res.Role)
	if !guard.IsLive(store.Snapshot()) {
		target = guard.LoginPath
	}
	return ctx.Redirect(http.StatusSeeOther, target)
}

func (s *server) register(ctx echo.Context) error {
	var form RegisterForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to RegisterForm")
	}
	if err := form.Validate(s.Validate); err != nil {
		return newFormError(pageRegister, &form, http.StatusBadRequest, err)
	}

	req := backendsvc.RegisterRequest{Name: form.Name, Email: form.Email, Password: form.Password}
	if err := s.Backend.Register(ctx.Request().Context(), req); err != nil {
		return s.backendFormError(pageRegister, &form, err)
	}
	return ctx.Redirect(http.StatusSeeOther, guard.LoginPath)
}

// forgot always answers with the same message so it cannot be used to probe for accounts.
func (s *server) forgot(ctx echo.Context) error {
	var form ForgotForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ForgotForm")
	}
	if err := form.Validate(s.Validate); err != nil {
		return newFormError(pageForgot, &form, http.StatusBadRequest, err)
	}

	if err := s.Backend.Forgot(ctx.Request().Context(), form.Email); err != nil {
		if errors.Cause(err) == backendsvc.ErrUnavailable {
			return s.backendFormError(pageForgot, &form, err)
		}
		s.Logger.Warn("requesting password reset", err)
	}

	data := s.newPageData(ctx, s.pageTitle(ctx))
	data.Form = &ForgotForm{}
	data.Message = forgotSentMessage
	return ctx.Render(http.StatusOK, pageForgot, data)
}

// reset sends the new password with the link's uid and token, then signs the user in again
// through the login page.
func (s *server) reset(ctx echo.Context) error {
	var form ResetForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ResetForm")
	}
	if err := form.Validate(s.Validate); err != nil {
		return newFormError(pageReset, &form, http.StatusBadRequest, err)
	}

	req := backendsvc.ResetRequest{UID: form.UID, Token: form.Token, Password: form.Password}
	if err := s.Backend.Reset(ctx.Request().Context(), req); err != nil {
		return s.backendFormError(pageReset, &form, err)
	}
	return ctx.Redirect(http.StatusSeeOther, guard.LoginPath)
}

func (s *server) logout(ctx echo.Context) error {
	getContextStore(ctx).Logout(ctx.Request().Context())
	s.Metrics.Logouts.Inc()
	ctx.Response().Header().Set(headerCacheControl, "no-store")
	return ctx.Redirect(http.StatusSeeOther, guard.LoginPath)
}

func (s *server) backendFormError(page string, form interface{}, err error) error {
	var rejected *backendsvc.RejectedError
	switch {
	case errors.Cause(err) == backendsvc.ErrInvalidCredentials:
		return newFormError(page, form, http.StatusUnauthorized, errors.New(errInvalidCredentials))
	case errors.Cause(err) == backendsvc.ErrUnavailable:
		s.Logger.Warn("calling backend", err)
		return newFormError(page, form, http.StatusServiceUnavailable, errors.New(errBackendUnavailable))
	case errors.As(err, &rejected):
		return newFormError(page, form, rejected.Status, rejected)
	}
	return errors.Wrap(err, "calling backend")
}
