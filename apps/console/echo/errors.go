package consoleapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
)

var (
	errInvalidCredentials = "invalid email or password"
	errBackendUnavailable = "the EduTracks service is unavailable, please try again later"
)

// formError re-renders a form page with the error that rejected it.
type formError struct {
	page string
	form interface{}
	code int
	err  error
}

func (e *formError) Error() string {
	if e.err == nil {
		return "invalid form"
	}
	return e.err.Error()
}

func newFormError(page string, form interface{}, code int, err error) error {
	return &formError{page: page, form: form, code: code, err: err}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(s *server) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		page := pageError
		data := s.newPageData(ctx, "Something went wrong")

		switch origErr := errors.Cause(err).(type) {
		case *formError:
			code = origErr.code
			page = origErr.page
			data.Form = origErr.form
			data.Title = s.pageTitle(ctx)
			switch fErr := errors.Cause(origErr.err).(type) {
			case validator.ValidationErrors:
				data.Errors = core.TranslateErrors(fErr, s.Translator)
			case *core.ValidationError:
				data.Errors = fErr.FieldMap()
				data.Error = fErr.Error()
			case nil:
			default:
				data.Error = fErr.Error()
			}
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if code == http.StatusNotFound {
				page = pageNotFound
				data.Title = "Not found"
			} else {
				data.Title = http.StatusText(code)
				if msg, ok := origErr.Message.(string); ok {
					data.Error = msg
				}
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			data.Title = http.StatusText(code)
			data.Errors = core.TranslateErrors(origErr, s.Translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			data.Title = http.StatusText(code)
			data.Error = origErr.Error()
			data.Errors = origErr.FieldMap()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			data.Title = msg

			s.Logger.Error(msg, errors.Wrap(err, msg), getContextSession(ctx))
		}

		if ctx.Echo().Debug && data.Error == "" {
			data.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.Render(code, page, data)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
