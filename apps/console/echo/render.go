package consoleapi

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	appfs "github.com/edutracks/console/fs"
)

const (
	tmplDir  = "templates"
	tmplBase = "_base.gohtml"
)

// Pages without a nav node.
const (
	pageLoading  = "loading"
	pageNotFound = "notfound"
	pageError    = "error"
)

// renderer executes the embedded page templates, each one parsed together with the base layout.
type renderer struct {
	strict bool

	once      sync.Once
	templates map[string]*template.Template // {name: *Template}
	err       error
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer(strict bool) *renderer {
	return &renderer{strict: strict}
}

func (r *renderer) parse() {
	r.templates = make(map[string]*template.Template)

	fps, err := fs.Glob(appfs.FS, path.Join(tmplDir, "*.gohtml"))
	if err != nil {
		r.err = errors.Wrap(err, "listing templates")
		return
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.ParseFS(appfs.FS, path.Join(tmplDir, tmplBase), fp)
		if err != nil {
			r.err = errors.Wrapf(err, "parsing %s", fname)
			return
		}
		if r.strict {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.templates[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.once.Do(r.parse) // only parse once, during the first request
	if r.err != nil {
		return r.err
	}
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, tmplBase, data)
}
