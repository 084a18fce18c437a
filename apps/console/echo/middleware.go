package consoleapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/session"
)

const (
	contextStoreKey    = "tabStore"
	contextSessionKey  = "session"
	headerCacheControl = "Cache-Control"
)

// tabSessionMiddleware resolves the client (browser profile) and tab of a request, issuing
// cookies for either when missing, and attaches the tab's session store to the context.
func (s *server) tabSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		conf := s.Conf.Server

		clientID, ok := cookieID(ctx, conf.ClientCookie)
		if !ok {
			clientID = uuid.NewString()
			s.setCookie(ctx, conf.ClientCookie, clientID, conf.ClientCookieAge)
		}
		tabID, ok := cookieID(ctx, conf.TabCookie)
		if !ok {
			tabID = uuid.NewString()
			s.setCookie(ctx, conf.TabCookie, tabID, 0) // gone when the browser closes
		}

		store := s.Registry.Store(ctx.Request().Context(), tabID, clientID)
		s.Metrics.TabSessions.Set(float64(s.Registry.Len()))

		ctx.Set(contextStoreKey, store)
		return next(ctx)
	}
}

func cookieID(ctx echo.Context, name string) (string, bool) {
	c, err := ctx.Cookie(name)
	if err != nil {
		return "", false
	}
	if _, err = uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func (s *server) setCookie(ctx echo.Context, name, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	}
	ctx.SetCookie(c)
}

func getContextStore(ctx echo.Context) *session.Store {
	store, _ := ctx.Get(contextStoreKey).(*session.Store)
	return store
}

// getContextSession returns the session the guard let through, or the tab's current one.
func getContextSession(ctx echo.Context) session.Session {
	if sess, ok := ctx.Get(contextSessionKey).(session.Session); ok {
		return sess
	}
	if store := getContextStore(ctx); store != nil {
		return store.Snapshot()
	}
	return session.Session{}
}

// guardMiddleware mounts g for the request. Guarded responses are never cached, so the
// back button cannot bring protected content back after a logout.
func (s *server) guardMiddleware(g guard.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			res := ctx.Response()
			res.Header().Set(headerCacheControl, "no-store")
			res.Header().Add(echo.HeaderVary, "Cookie")

			sess := getContextSession(ctx)
			latch := g.Mount()

			// speculative loads see the guard before it settles
			if isPrefetch(ctx.Request()) {
				if d := latch.State(sess); d.State == guard.Checking {
					s.Metrics.ObserveDecision(g, d)
					return ctx.Render(http.StatusOK, pageLoading, s.newPageData(ctx, "Loading"))
				}
			}

			d := latch.Settle(sess)
			s.Metrics.ObserveDecision(g, d)
			if d.IsRedirect() {
				return ctx.Redirect(http.StatusFound, d.Target)
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func isPrefetch(req *http.Request) bool {
	for _, h := range []string{"Sec-Purpose", "Purpose", "X-Moz"} {
		switch req.Header.Get(h) {
		case "prefetch", "prefetch;prerender", "prerender":
			return true
		}
	}
	return false
}
