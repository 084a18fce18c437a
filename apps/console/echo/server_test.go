package consoleapi

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/pkg/errors"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/services/backend"
	"github.com/edutracks/console/tests"
)

type httpTest struct {
	name         string
	path         string
	headers      []string
	wantCode     int
	wantLocation string
	wantBody     string
}

func checkResponse(t *testing.T, b *browser, tt httpTest) {
	t.Helper()
	rec := b.get(tt.path, tt.headers...)
	assert.Equal(t, tt.wantCode, rec.Code)
	assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
	if tt.wantBody != "" {
		assert.Contains(t, rec.Body.String(), tt.wantBody)
	}
}

// signIn logs the browser in through the sign-in form.
func (env *testEnv) signIn(t *testing.T, b *browser, tok string, r role.Role, remember bool) {
	t.Helper()
	env.backend.loginFunc = func(email, _ string) (backendsvc.LoginResult, error) {
		return backendsvc.LoginResult{Token: tok, Role: r, Username: email}, nil
	}
	form := url.Values{"email": {"user@edutracks.test"}, "password": {"secret"}}
	if remember {
		form.Set("remember", "on")
	}
	rec := b.post("/Account/login", form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func TestServer_anonymous(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	tests := []httpTest{
		{name: "root", path: "/", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "admin dashboard", path: "/Admin/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "parents page", path: "/Parents/Bus", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "unknown page in area", path: "/Teacher/Nope", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "unknown page", path: "/nowhere", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "profile", path: "/Profile", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "trailing slash", path: "/Admin/Dashboard/", wantCode: http.StatusFound, wantLocation: "/Account/login"},
		{name: "login", path: "/Account/login", wantCode: http.StatusOK, wantBody: `action="/Account/login"`},
		{name: "register", path: "/Account/register", wantCode: http.StatusOK, wantBody: `name="password2"`},
		{name: "forgot", path: "/Account/forgot", wantCode: http.StatusOK, wantBody: "Send reset link"},
		{name: "health", path: "/healthz", wantCode: http.StatusOK, wantBody: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, b, tt)
		})
	}

	rec := b.get("/Admin/Dashboard")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, b.cookies, clientCookie)
	assert.Contains(t, b.cookies, tabCookie)
}

func TestServer_signedIn(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)
	env.signIn(t, b, testutil.LiveToken(t, ""), role.Teacher, true)

	tests := []httpTest{
		{name: "root", path: "/", wantCode: http.StatusFound, wantLocation: "/Teacher/Dashboard"},
		{name: "own dashboard", path: "/Teacher/Dashboard", wantCode: http.StatusOK, wantBody: "Welcome, user@edutracks.test"},
		{name: "own page", path: "/Teacher/Students", wantCode: http.StatusOK, wantBody: "Students are managed"},
		{name: "other area", path: "/Admin/Students", wantCode: http.StatusFound, wantLocation: "/Teacher/Dashboard"},
		{name: "other area, unknown page", path: "/Admin/Nope", wantCode: http.StatusFound, wantLocation: "/Teacher/Dashboard"},
		{name: "unknown page in own area", path: "/Teacher/Nope", wantCode: http.StatusNotFound, wantBody: "Page not found"},
		{name: "unknown page", path: "/nowhere", wantCode: http.StatusNotFound, wantBody: "/nowhere"},
		{name: "login", path: "/Account/login", wantCode: http.StatusFound, wantLocation: "/Teacher/Dashboard"},
		{name: "register", path: "/Account/register", wantCode: http.StatusFound, wantLocation: "/Teacher/Dashboard"},
		{name: "profile", path: "/Profile", wantCode: http.StatusOK, wantBody: "<dd>Teacher</dd>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, b, tt)
		})
	}
}

func TestServer_unknownRole(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)
	env.signIn(t, b, testutil.LiveToken(t, ""), "Janitor", false)

	checkResponse(t, b, httpTest{path: "/", wantCode: http.StatusFound, wantLocation: "/Parents/Dashboard"})
	// the fallback landing page does not admit unknown roles either; see role.FallbackRole
	checkResponse(t, b, httpTest{path: "/Parents/Dashboard", wantCode: http.StatusFound, wantLocation: "/Parents/Dashboard"})
	checkResponse(t, b, httpTest{path: "/Profile", wantCode: http.StatusOK, wantBody: "Janitor"})
}

func TestServer_expiredToken(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	env.backend.loginFunc = func(email, _ string) (backendsvc.LoginResult, error) {
		return backendsvc.LoginResult{Token: testutil.ExpiredToken(t, ""), Role: role.Admin, Username: email}, nil
	}
	rec := b.post("/Account/login", url.Values{"email": {"a@edutracks.test"}, "password": {"pwd"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/Account/login", rec.Header().Get("Location"))

	checkResponse(t, b, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"})
	checkResponse(t, b, httpTest{path: "/", wantCode: http.StatusFound, wantLocation: "/Account/login"})
	checkResponse(t, b, httpTest{path: "/Account/login", wantCode: http.StatusOK})
}

func TestServer_remember(t *testing.T) {
	for _, remember := range []bool{true, false} {
		env := setup(t)
		b := env.newBrowser(t)
		env.signIn(t, b, testutil.LiveToken(t, ""), role.Student, remember)
		checkResponse(t, b, httpTest{path: "/Student/Dashboard", wantCode: http.StatusOK})

		b.restart()
		if remember {
			checkResponse(t, b, httpTest{path: "/Student/Dashboard", wantCode: http.StatusOK})
		} else {
			checkResponse(t, b, httpTest{path: "/Student/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"})
			// role and username survive; they are meaningless without a token
			checkResponse(t, b, httpTest{path: "/Account/login", wantCode: http.StatusOK})
		}
		assert.Equal(t, 2, env.registry.Len())
	}
}

func TestServer_logout(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)
	env.signIn(t, b, testutil.LiveToken(t, ""), role.Admin, true)
	checkResponse(t, b, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusOK})

	rec := b.post("/Account/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/Account/login", rec.Header().Get("Location"))

	checkResponse(t, b, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"})
	b.restart()
	checkResponse(t, b, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"})
	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.Logouts))
}

func TestServer_prefetch(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	checkResponse(t, b, httpTest{
		path:     "/Admin/Dashboard",
		headers:  []string{"Sec-Purpose", "prefetch"},
		wantCode: http.StatusOK,
		wantBody: "Loading",
	})
	// the root redirector has no checking phase
	checkResponse(t, b, httpTest{
		path:         "/",
		headers:      []string{"Sec-Purpose", "prefetch"},
		wantCode:     http.StatusFound,
		wantLocation: "/Account/login",
	})
	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.GuardDecisions.WithLabelValues("protected", "checking")))
}

func TestServer_metrics(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)
	env.signIn(t, b, testutil.LiveToken(t, ""), role.Parent, true)

	b.get("/Parents/Children")
	b.get("/Admin/Dashboard")

	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.Logins.WithLabelValues("Parent", "true")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.GuardDecisions.WithLabelValues("protected", "render")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.GuardDecisions.WithLabelValues("protected", "redirect_role_home")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(env.metrics.TabSessions))

	// metrics live on the debug listener only
	rec := b.get("/metrics")
	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "edutracks_logins_total")
}

func TestServer_tabsAreIsolated(t *testing.T) {
	env := setup(t)
	alice, bob := env.newBrowser(t), env.newBrowser(t)
	env.signIn(t, alice, testutil.LiveToken(t, ""), role.Admin, true)

	checkResponse(t, alice, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusOK})
	checkResponse(t, bob, httpTest{path: "/Admin/Dashboard", wantCode: http.StatusFound, wantLocation: "/Account/login"})

	// a forged tab cookie is replaced
	bob.cookies[tabCookie].Value = "not-a-uuid"
	bob.get("/Account/login")
	assert.NotEqual(t, "not-a-uuid", bob.cookies[tabCookie].Value)
}

func TestServer_internalError(t *testing.T) {
	env := setup(t)
	env.backend.loginFunc = func(string, string) (backendsvc.LoginResult, error) {
		return backendsvc.LoginResult{}, errors.New("connection reset by peer")
	}
	b := env.newBrowser(t)

	rec := b.post("/Account/login", url.Values{"email": {"a@edutracks.test"}, "password": {"pwd"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")

	var logged bool
	for _, line := range env.logger.Lines() {
		if strings.HasPrefix(line, "error: Internal Server Error") {
			logged = true
		}
	}
	assert.True(t, logged, env.logger.Lines())

	// a failing request never stops the server
	select {
	case sig := <-env.server.ShutdownSignal():
		t.Fatalf("unexpected shutdown signal %v", sig)
	default:
	}
}
