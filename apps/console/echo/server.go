package consoleapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/nav"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/services/backend"
	"github.com/edutracks/console/services/metrics"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Registry       *session.Registry
		Backend        backendsvc.Service
		Metrics        *metricsvc.Metrics
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s)
	s.app.Renderer = newRenderer(debug || s.Conf.TestMode)
	s.app.Debug = debug

	s.app.GET("/healthz", healthz)

	tabs := s.tabSessionMiddleware
	s.app.POST("/Account/logout", s.logout, tabs)
	s.registerNavTree(tabs)
}

// registerNavTree mounts every route of the navigation tree behind its guard.
// Each route carries its own middleware: group-level middleware would also wrap echo's
// fallback routes.
func (s *server) registerNavTree(tabs echo.MiddlewareFunc) {
	nav.Walk(func(n *nav.Node, g guard.Guard) {
		guarded := []echo.MiddlewareFunc{tabs, s.guardMiddleware(g)}

		switch {
		case g.Kind == guard.Root && n.Guard != nil:
			s.app.GET(n.Path, s.notFound, guarded...) // the guard always redirects
		case n.Page != nav.NoPage:
			s.app.GET(n.Path, s.page(n), guarded...)
			if h := s.form(n); h != nil {
				s.app.POST(n.Path, h, guarded...)
			}
		case n.CatchAll && n.Path == "/":
			s.app.Any("/*", s.notFound, guarded...)
		case n.CatchAll:
			s.app.Any(n.Path, s.notFound, guarded...)
			s.app.Any(n.Path+"/*", s.notFound, guarded...)
		}
	})
}

func (s *server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
