package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/markdown"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is what every template receives.  Data holds the page-specific
// view model.
type Page struct {
	Title    string
	Identity policy.Identity
	Flashes  []flash.Message
	CSRF     string
	Data     any
}

// Renderer renders the embedded templates.  Each page is parsed together
// with the shared layout so that every page can define its own "content"
// block.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"markdown": markdown.Render,
}

// NewRenderer parses all embedded templates.
func NewRenderer() (*Renderer, error) {
	layout, err := fs.ReadFile(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(entries))}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		if name == "layout" {
			continue
		}
		body, err := fs.ReadFile(templateFS, "templates/"+e.Name())
		if err != nil {
			return nil, err
		}
		t, err := template.New(name).Funcs(funcs).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parse layout for %s: %w", name, err)
		}
		if _, err := t.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
