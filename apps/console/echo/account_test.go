package consoleapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/services/backend"
	"github.com/edutracks/console/tests"
)

type formTest struct {
	name         string
	path         string
	form         url.Values
	backendErr   error
	wantCode     int
	wantLocation string
	wantBody     []string
}

func TestAccount_login(t *testing.T) {
	live := func(t *testing.T) string { return testutil.LiveToken(t, role.Admin) }

	tests := []formTest{
		{name: "missing fields", form: url.Values{}, wantCode: http.StatusBadRequest, wantBody: []string{"this field is required"}},
		{name: "bad email", form: url.Values{"email": {"nope"}, "password": {"pwd"}}, wantCode: http.StatusBadRequest, wantBody: []string{"enter a valid email address", `value="nope"`}},
		{name: "invalid credentials", form: url.Values{"email": {"a@edutracks.test"}, "password": {"bad"}}, backendErr: backendsvc.ErrInvalidCredentials, wantCode: http.StatusUnauthorized, wantBody: []string{"invalid email or password"}},
		{name: "backend down", form: url.Values{"email": {"a@edutracks.test"}, "password": {"pwd"}}, backendErr: errors.Wrap(backendsvc.ErrUnavailable, "dial tcp"), wantCode: http.StatusServiceUnavailable, wantBody: []string{"unavailable"}},
		{name: "success", form: url.Values{"email": {" A@EduTracks.test "}, "password": {"pwd"}, "remember": {"on"}}, wantCode: http.StatusSeeOther, wantLocation: "/Admin/Dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			b := env.newBrowser(t)
			tok := live(t)
			var gotEmail string
			env.backend.loginFunc = func(email, _ string) (backendsvc.LoginResult, error) {
				gotEmail = email
				if tt.backendErr != nil {
					return backendsvc.LoginResult{}, tt.backendErr
				}
				return backendsvc.LoginResult{Token: tok, Role: role.Admin, Username: email}, nil
			}

			rec := b.post("/Account/login", tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
			if tt.wantCode == http.StatusSeeOther {
				assert.Equal(t, "a@edutracks.test", gotEmail)
			}
		})
	}
}

func TestAccount_register(t *testing.T) {
	valid := url.Values{"name": {"Ada"}, "email": {"ada@edutracks.test"}, "password": {"password1"}, "password2": {"password1"}}
	mismatch := url.Values{"name": {"Ada"}, "email": {"ada@edutracks.test"}, "password": {"password1"}, "password2": {"password2"}}
	short := url.Values{"name": {"Ada"}, "email": {"ada@edutracks.test"}, "password": {"pwd"}, "password2": {"pwd"}}

	tests := []formTest{
		{name: "mismatch", form: mismatch, wantCode: http.StatusBadRequest, wantBody: []string{"password2 does not match"}},
		{name: "short password", form: short, wantCode: http.StatusBadRequest, wantBody: []string{"at least 8 characters"}},
		{name: "rejected", form: valid, backendErr: &backendsvc.RejectedError{Status: http.StatusConflict, Message: "email already registered"}, wantCode: http.StatusConflict, wantBody: []string{"email already registered"}},
		{name: "success", form: valid, wantCode: http.StatusSeeOther, wantLocation: "/Account/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			env.backend.err = tt.backendErr
			b := env.newBrowser(t)

			rec := b.post("/Account/register", tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
			if tt.wantCode == http.StatusSeeOther {
				assert.Equal(t, []backendsvc.RegisterRequest{{Name: "Ada", Email: "ada@edutracks.test", Password: "password1"}}, env.backend.registered)
			}
		})
	}
}

func TestAccount_forgot(t *testing.T) {
	tests := []formTest{
		{name: "invalid", form: url.Values{"email": {"x"}}, wantCode: http.StatusBadRequest, wantBody: []string{"enter a valid email address"}},
		{name: "known or not", form: url.Values{"email": {"who@edutracks.test"}}, wantCode: http.StatusOK, wantBody: []string{forgotSentMessage}},
		{name: "rejected looks the same", form: url.Values{"email": {"who@edutracks.test"}}, backendErr: &backendsvc.RejectedError{Status: http.StatusNotFound}, wantCode: http.StatusOK, wantBody: []string{forgotSentMessage}},
		{name: "backend down", form: url.Values{"email": {"who@edutracks.test"}}, backendErr: backendsvc.ErrUnavailable, wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			env.backend.err = tt.backendErr
			b := env.newBrowser(t)

			rec := b.post("/Account/forgot", tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestAccount_reset(t *testing.T) {
	valid := url.Values{"uid": {"MQ"}, "token": {"tok"}, "password": {"password1"}, "password2": {"password1"}}
	noLink := url.Values{"password": {"password1"}, "password2": {"password1"}}

	tests := []formTest{
		{name: "link incomplete", form: noLink, wantCode: http.StatusBadRequest, wantBody: []string{"This reset link is incomplete"}},
		{name: "link expired", form: valid, backendErr: &backendsvc.RejectedError{Status: http.StatusBadRequest, Message: "invalid or expired reset link"}, wantCode: http.StatusBadRequest, wantBody: []string{"invalid or expired reset link"}},
		{name: "success", form: valid, wantCode: http.StatusSeeOther, wantLocation: "/Account/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			env.backend.err = tt.backendErr
			b := env.newBrowser(t)

			rec := b.post("/Account/reset", tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
			if tt.wantCode == http.StatusSeeOther {
				assert.Equal(t, []backendsvc.ResetRequest{{UID: "MQ", Token: "tok", Password: "password1"}}, env.backend.resets)
			}
		})
	}

	t.Run("link prefills the form", func(t *testing.T) {
		env := setup(t)
		rec := env.newBrowser(t).get("/Account/reset?uid=MQ&token=abc-def")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="uid" value="MQ"`)
		assert.Contains(t, rec.Body.String(), `name="token" value="abc-def"`)
	})
}

func TestAccount_logoutWithoutSession(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	rec := b.post("/Account/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/Account/login", rec.Header().Get("Location"))
}
