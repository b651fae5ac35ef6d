// Package view renders the blog's HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/core/domain"
)

// Page names accepted by Renderer.Render.
const (
	PageIndex = "index"
	PagePost  = "post"
	PageLogin = "login"
	PageAdmin = "admin"
	PageForm  = "form"
	PageError = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title  string
	User   *domain.User
	Notice string
	Error  string

	Posts    []*domain.Post
	Archived []*domain.Post
	Post     *domain.Post
	HTML     template.HTML

	Form     PostForm
	Action   string
	Username string
}

// PostForm holds the values shown in the new/edit form.
type PostForm struct {
	Title   string
	Content string
}

// Renderer implements echo.Renderer. Each page is the shared layout plus
// its own "content" block.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PagePost, PageLogin, PageAdmin, PageForm, PageError} {
		layout, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("view: clone layout: %w", err)
		}
		page, err := layout.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return page.ExecuteTemplate(w, "layout", data)
}
