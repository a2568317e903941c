// Package mail implements notification.Mailer transports. Templates are
// embedded and rendered to a text and an HTML part before delivery.
package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strings"
	texttmpl "text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// ErrUnknownTemplate is returned for a template name with no files.
var ErrUnknownTemplate = errors.New("mail: unknown template")

// Rendered is a message body in both formats.
type Rendered struct {
	Text string
	HTML string
}

// Renderer renders the embedded templates. Every template has a .txt and a
// .gohtml file sharing its base name.
type Renderer struct {
	text map[string]*texttmpl.Template
	html map[string]*htmltmpl.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		text: make(map[string]*texttmpl.Template),
		html: make(map[string]*htmltmpl.Template),
	}

	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("mail: read templates: %w", err)
	}

	for _, e := range entries {
		file := e.Name()
		ext := path.Ext(file)
		name := strings.TrimSuffix(file, ext)
		full := path.Join("templates", file)

		switch ext {
		case ".txt":
			t, err := texttmpl.New(file).Option("missingkey=zero").ParseFS(templatesFS, full)
			if err != nil {
				return nil, fmt.Errorf("mail: parse %s: %w", file, err)
			}
			r.text[name] = t
		case ".gohtml":
			t, err := htmltmpl.New(file).Option("missingkey=zero").ParseFS(templatesFS, full)
			if err != nil {
				return nil, fmt.Errorf("mail: parse %s: %w", file, err)
			}
			r.html[name] = t
		}
	}

	return r, nil
}

// MustRenderer is NewRenderer that panics; the templates are compiled in.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Templates returns the names of the available templates.
func (r *Renderer) Templates() []string {
	names := make([]string, 0, len(r.text))
	for name := range r.text {
		names = append(names, name)
	}
	return names
}

// Render executes both parts of the named template with data.
func (r *Renderer) Render(name string, data map[string]any) (Rendered, error) {
	text, okText := r.text[name]
	html, okHTML := r.html[name]
	if !okText && !okHTML {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var out Rendered
	var buf bytes.Buffer

	if okText {
		if err := text.Execute(&buf, data); err != nil {
			return Rendered{}, fmt.Errorf("mail: render %s text: %w", name, err)
		}
		out.Text = buf.String()
		buf.Reset()
	}

	if okHTML {
		if err := html.Execute(&buf, data); err != nil {
			return Rendered{}, fmt.Errorf("mail: render %s html: %w", name, err)
		}
		out.HTML = buf.String()
	}

	return out, nil
}
