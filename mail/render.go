package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes named html/template files.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template named by msg and returns the HTML body.
func (r *Renderer) Render(msg Message) (string, error) {
	t := r.tmpl.Lookup(msg.Template)
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, msg.Template)
	}
	var body bytes.Buffer
	if err := t.Execute(&body, msg.Data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", msg.Template, err)
	}
	return body.String(), nil
}
