package renderer

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New parses every template below dir (normally "views")
func New(dir string) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	if err := r.parseTemplates(dir); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *TemplateRenderer) parseTemplates(dir string) error {
	parse := func(name string, files ...string) error {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = filepath.Join(dir, f)
		}
		tmpl, err := template.ParseFiles(paths...)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		t.Templates[name] = tmpl
		return nil
	}

	// Pages share the layout, the confirm dialog and the workspace partial
	if err := parse("browser",
		"layouts/base.html",
		"partials/confirm_dialog.html",
		"partials/workspace.html",
		"pages/browser.html",
	); err != nil {
		return err
	}

	// Login is standalone
	if err := parse("login", "pages/login.html"); err != nil {
		return err
	}

	// Partials swapped in by HTMX
	if err := parse("workspace", "partials/workspace.html"); err != nil {
		return err
	}
	if err := parse("config_form", "partials/config_form.html"); err != nil {
		return err
	}

	t.Templates["login_error"] = template.Must(template.New("error").Parse(
		`<div id="error-message" class="text-red-500 text-sm text-center block mb-4">{{.}}</div>`))
	return nil
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"workspace":   true,
	"config_form": true,
	"login":       true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// login_error is a bare template; pages execute the "base" block
	if tmpl.Lookup("base") == nil {
		return tmpl.Execute(w, data)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
