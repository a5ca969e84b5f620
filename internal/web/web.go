// Package web holds the embedded landing page template and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

// IndexTemplate is the name of the landing page template.
const IndexTemplate = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// IndexData is the data the landing page is rendered with.
type IndexData struct {
	LocalIP string
	Port    int
}

// Renderer renders the embedded templates for echo's Context.Render.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Static returns the static asset tree rooted at its top directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
