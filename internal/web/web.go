// Package web renders the HTML pages served by the application.
// Page rendering is deliberately minimal; each template is a complete
// standalone document.
package web

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the named page with the given status and data. A
// template failure after the header is written is not recoverable, so it
// is swallowed here; callers log it.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return r.tmpl.ExecuteTemplate(w, page, data)
}
