// Package devapi is a development stand-in for the EduTracks REST backend.
// It serves the auth endpoints the console talks to, backed by an in-memory account table.
package devapi

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/services/email"
)

var (
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errEmailTaken           = echo.NewHTTPError(http.StatusConflict, "email already registered")
	errUnknownRole          = echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	errResetFailed          = echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset link")
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Users          *Users
		Mailer         emailsvc.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		NowFunc        func() time.Time
	}

	Server struct {
		ServerDeps
		app    *echo.Echo
		tokens tokenIssuer
		resets resetTokens
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.NowFunc == nil {
		deps.NowFunc = time.Now
	}
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		tokens: tokenIssuer{
			key:    []byte(deps.Conf.DevAPI.SecretKey),
			ttl:    deps.Conf.DevAPI.TokenTTL,
			issuer: deps.Conf.AppName,
			now:    deps.NowFunc,
		},
		resets: resetTokens{
			key:     []byte(deps.Conf.DevAPI.SecretKey),
			timeout: deps.Conf.DevAPI.ResetTimeout,
			now:     deps.NowFunc,
		},
	}
	registerValidators(deps.Validate, deps.Translator)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	s.app.HTTPErrorHandler = s.handleError

	g := s.app.Group("/api/v1/auth")
	g.POST("/login", s.login)
	g.POST("/register", s.register)
	g.POST("/forgot", s.forgot)
	g.POST("/reset", s.reset)
}

func (s *Server) Start() error {
	err := s.app.Start(s.Conf.DevAPI.Address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Handlers

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := authenticate(data.Email, data.Password, s.Users)
	if err != nil {
		return err
	}
	token, err := s.tokens.GenerateToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	s.Logger.Info("login: " + usr.Email)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: usr.Role.String(), Username: usr.Name})
}

func (s *Server) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	r := role.Parent // self-registration defaults to a parent account
	if data.Role != "" {
		var ok bool
		if r, ok = role.Parse(data.Role); !ok {
			return errUnknownRole
		}
	}

	usr, err := s.Users.Create(data.Name, data.Email, data.Password, r)
	if err != nil {
		if errors.Cause(err) == ErrEmailTaken {
			return errEmailTaken
		}
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"id": usr.ID})
}

// forgot always accepts the request so callers cannot probe which emails are registered.
func (s *Server) forgot(ctx echo.Context) error {
	var data ForgotRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := s.Users.GetByEmail(data.Email)
	if err != nil {
		return ctx.NoContent(http.StatusAccepted)
	}
	link, err := s.resetLink(usr)
	if err != nil {
		return errors.Wrap(err, "making reset link")
	}
	msg := emailsvc.Message{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hi %s,\r\n\r\nFollow this link to choose a new password:\r\n%s\r\n", usr.Name, link),
	}
	if err = s.Mailer.Send(ctx.Request().Context(), msg); err != nil {
		s.Logger.Error(fmt.Sprintf("sending reset email: %v", err), err)
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (s *Server) reset(ctx echo.Context) error {
	var data ResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return errResetFailed
	}
	usr, err := s.Users.GetByID(id)
	if err != nil {
		return errResetFailed
	}
	if err = s.resets.Verify(usr, data.Token); err != nil {
		return errResetFailed
	}
	if tag := checkPassword(data.Password, usr.Name, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdTexts[tag]})
	}
	if err = s.Users.ChangePassword(usr.ID, data.Password); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) resetLink(usr User) (string, error) {
	token, err := s.resets.Make(usr)
	if err != nil {
		return "", err
	}
	q := url.Values{"uid": {EncodeUID(usr)}, "token": {token}}
	return s.Conf.DevAPI.ResetURL + "?" + q.Encode(), nil
}

// handleError writes every error as {"error": ..., "fields": ...}.
func (s *Server) handleError(err error, ctx echo.Context) {
	var code int
	body := map[string]interface{}{}

	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		code = origErr.Code
		body["error"] = origErr.Message
	case validator.ValidationErrors:
		code = http.StatusBadRequest
		body["error"] = "invalid request"
		body["fields"] = core.TranslateErrors(origErr, s.Translator)
	case *core.ValidationError:
		code = http.StatusBadRequest
		body["error"] = "invalid request"
		body["fields"] = origErr.FieldMap()
	default:
		code = http.StatusInternalServerError
		msg := http.StatusText(code)
		body["error"] = msg
		s.Logger.Error(msg, errors.Wrap(err, msg))
	}

	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, body)
	}
	if err != nil {
		s.Logger.Error(err.Error(), err)
	}
}
