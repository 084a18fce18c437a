// Package backendsvc talks to the EduTracks REST backend on behalf of the console.
package backendsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/token"
)

const (
	loginPath    = "/api/v1/auth/login"
	registerPath = "/api/v1/auth/register"
	forgotPath   = "/api/v1/auth/forgot"
	resetPath    = "/api/v1/auth/reset"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("backend unavailable")
)

// RejectedError is a request the backend refused (4xx other than bad credentials).
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected the request (%d)", e.Status)
	}
	return e.Message
}

// Service is what the console needs from the backend.
type Service interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Register(ctx context.Context, req RegisterRequest) error
	Forgot(ctx context.Context, email string) error
	Reset(ctx context.Context, req ResetRequest) error
}

type (
	LoginResult struct {
		Token    string
		Role     role.Role
		Username string
	}

	// ResetRequest completes a password reset with the uid and token of the emailed link.
	ResetRequest struct {
		UID      string `json:"uid"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}

	RegisterRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role,omitempty"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token    string `json:"token"`
		Role     string `json:"role"`
		Username string `json:"username"`
	}

	forgotRequest struct {
		Email string `json:"email"`
	}

	errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	maxTries uint
	backOff  func() backoff.BackOff
	logger   core.Logger
}

var _ Service = (*Client)(nil)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.Backend.BaseURL,
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "backend",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn(fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to))
			},
			IsSuccessful: isSuccessful,
		}),
		maxTries: conf.Backend.MaxRetries + 1,
		backOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:   logger,
	}
}

// Login exchanges credentials for a token. The role comes from the response, or from the
// token's own `role` claim when the response has none.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp loginResponse
	if err := c.post(ctx, loginPath, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return LoginResult{}, err
	}
	if resp.Token == "" {
		return LoginResult{}, errors.Wrap(ErrUnavailable, "login response without token")
	}

	res := LoginResult{Token: resp.Token, Role: role.Role(resp.Role), Username: resp.Username}
	if res.Role == "" {
		if payload, err := token.Decode(resp.Token); err == nil {
			res.Role = role.Role(payload.String("role"))
		}
	}
	if res.Username == "" {
		res.Username = email
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.post(ctx, registerPath, req, nil)
}

func (c *Client) Forgot(ctx context.Context, email string) error {
	return c.post(ctx, forgotPath, forgotRequest{Email: email}, nil)
}

func (c *Client) Reset(ctx context.Context, req ResetRequest) error {
	return c.post(ctx, resetPath, req, nil)
}

// post sends a JSON request, retrying transport errors and 5xx responses.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}

	op := func() (struct{}, error) {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.do(ctx, path, body, out)
		})
		switch {
		case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
			return struct{}{}, backoff.Permanent(errors.Wrap(ErrUnavailable, err.Error()))
		case err != nil && !retryable(err):
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debug(fmt.Sprintf("backend %s failed, retrying in %s", path, next), err)
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(notify),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}

	switch {
	case resp.StatusCode >= 500:
		return errors.Wrapf(ErrUnavailable, "backend answered %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || (path == loginPath && resp.StatusCode == http.StatusBadRequest):
		return ErrInvalidCredentials
	case resp.StatusCode >= 400:
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		return &RejectedError{Status: resp.StatusCode, Message: strings.TrimSpace(msg)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, "decoding response")
		}
	}
	return nil
}

// retryable reports transport failures and 5xx answers.
func retryable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

// isSuccessful keeps answers the backend gave on purpose from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil || !retryable(err)
}
