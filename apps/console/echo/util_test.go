package consoleapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/services/backend"
	"github.com/edutracks/console/services/metrics"
	"github.com/edutracks/console/storage/memory"
	"github.com/edutracks/console/tests"
)

const (
	clientCookie = "edutracks_client"
	tabCookie    = "edutracks_tab"
)

type fakeBackend struct {
	mu         sync.Mutex
	loginFunc  func(email, password string) (backendsvc.LoginResult, error)
	registered []backendsvc.RegisterRequest
	forgotten  []string
	resets     []backendsvc.ResetRequest
	err        error // returned by Register, Forgot and Reset
}

var _ backendsvc.Service = (*fakeBackend)(nil)

func (b *fakeBackend) Login(_ context.Context, email, password string) (backendsvc.LoginResult, error) {
	return b.loginFunc(email, password)
}

func (b *fakeBackend) Register(_ context.Context, req backendsvc.RegisterRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.registered = append(b.registered, req)
	return nil
}

func (b *fakeBackend) Forgot(_ context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forgotten = append(b.forgotten, email)
	return b.err
}

func (b *fakeBackend) Reset(_ context.Context, req backendsvc.ResetRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.resets = append(b.resets, req)
	return nil
}

type testEnv struct {
	server   Server
	backend  *fakeBackend
	registry *session.Registry
	metrics  *metricsvc.Metrics
	logger   *testutil.Logger
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func setup(t *testing.T) *testEnv {
	logger := &testutil.Logger{}
	conf := &core.Config{
		AppName:  "EduTracks",
		TestMode: true,
		Server: core.ServerConfig{
			ClientCookie:    clientCookie,
			TabCookie:       tabCookie,
			ClientCookieAge: time.Hour,
		},
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	env := &testEnv{
		backend:  &fakeBackend{},
		registry: session.NewRegistry(memstorage.Open().Opener(), logger),
		metrics:  metricsvc.New(),
		logger:   logger,
	}
	env.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Registry:       env.registry,
		Backend:        env.backend,
		Metrics:        env.metrics,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return env
}

// browser keeps cookies between requests like a browser profile would.
type browser struct {
	t       *testing.T
	srv     http.Handler
	cookies map[string]*http.Cookie
}

func (env *testEnv) newBrowser(t *testing.T) *browser {
	return &browser{t: t, srv: env.server, cookies: make(map[string]*http.Cookie)}
}

// restart drops the browser-session cookies, like closing and reopening the browser.
func (b *browser) restart() {
	for name, c := range b.cookies {
		if c.MaxAge == 0 && c.Expires.IsZero() {
			delete(b.cookies, name)
		}
	}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}
