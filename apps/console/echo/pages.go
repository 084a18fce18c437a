package consoleapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edutracks/console/core/nav"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/core/token"
)

type (
	pageData struct {
		AppName string
		Title   string
		Path    string
		Session session.Session
		Nav     []*nav.Node

		Form    interface{}
		Errors  map[string]string
		Error   string
		Message string

		Profile *profileData
	}

	profileData struct {
		Username    string
		Role        role.Role
		LandingPath string
		ExpiresAt   time.Time
	}
)

func (s *server) newPageData(ctx echo.Context, title string) *pageData {
	sess := getContextSession(ctx)
	data := &pageData{
		AppName: s.Conf.AppName,
		Title:   title,
		Path:    ctx.Request().URL.Path,
		Session: sess,
	}
	if sess.HasToken() {
		if area := nav.Area(sess.Role); area != nil {
			data.Nav = area.Children
		}
	}
	return data
}

func (s *server) pageTitle(ctx echo.Context) string {
	if r := nav.Match(ctx.Request().URL.Path); r.Found() {
		return r.Node.Title
	}
	return ""
}

// page returns the GET handler of a nav node.
func (s *server) page(n *nav.Node) echo.HandlerFunc {
	switch n.Page {
	case nav.Profile:
		return func(ctx echo.Context) error {
			data := s.newPageData(ctx, n.Title)
			data.Profile = newProfile(data.Session)
			return ctx.Render(http.StatusOK, string(n.Page), data)
		}
	case nav.Login:
		return func(ctx echo.Context) error {
			data := s.newPageData(ctx, n.Title)
			data.Form = &LoginForm{}
			return ctx.Render(http.StatusOK, string(n.Page), data)
		}
	case nav.Register:
		return func(ctx echo.Context) error {
			data := s.newPageData(ctx, n.Title)
			data.Form = &RegisterForm{}
			return ctx.Render(http.StatusOK, string(n.Page), data)
		}
	case nav.Forgot:
		return func(ctx echo.Context) error {
			data := s.newPageData(ctx, n.Title)
			data.Form = &ForgotForm{}
			return ctx.Render(http.StatusOK, string(n.Page), data)
		}
	case nav.Reset:
		return func(ctx echo.Context) error {
			data := s.newPageData(ctx, n.Title)
			data.Form = &ResetForm{UID: ctx.QueryParam("uid"), Token: ctx.QueryParam("token")}
			return ctx.Render(http.StatusOK, string(n.Page), data)
		}
	}
	return func(ctx echo.Context) error {
		return ctx.Render(http.StatusOK, string(n.Page), s.newPageData(ctx, n.Title))
	}
}

// form returns the POST handler of a nav node, if it has one.
func (s *server) form(n *nav.Node) echo.HandlerFunc {
	switch n.Page {
	case nav.Login:
		return s.login
	case nav.Register:
		return s.register
	case nav.Forgot:
		return s.forgot
	case nav.Reset:
		return s.reset
	}
	return nil
}

func newProfile(sess session.Session) *profileData {
	p := &profileData{
		Username:    sess.Username,
		Role:        sess.Role,
		LandingPath: role.LandingPath(sess.Role),
	}
	if payload, err := token.Decode(sess.Token); err == nil {
		p.ExpiresAt = payload.ExpiresAt()
	}
	return p
}

func (s *server) notFound(echo.Context) error {
	return echo.ErrNotFound
}
