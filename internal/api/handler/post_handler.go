package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
)

// PostHandler serves the public pages.
type PostHandler struct {
	service ports.PostService
}

func NewPostHandler(service ports.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// Index handles GET /: every active post.
func (h *PostHandler) Index(c echo.Context) error {
	posts, err := h.service.List(c.Request().Context(), false)
	if err != nil {
		return err
	}

	p := newPage(c, "")
	p.Posts = posts
	return c.Render(http.StatusOK, view.PageIndex, p)
}

// Show handles GET /post/:filename. Archived posts are not public.
func (h *PostHandler) Show(c echo.Context) error {
	id, err := postRef(c, "filename")
	if err != nil || id.Archived() {
		return h.notFound(c)
	}

	rendered, err := h.service.Render(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			return h.notFound(c)
		}
		return err
	}

	p := newPage(c, rendered.Post.Title)
	p.Post = rendered.Post
	p.HTML = rendered.HTML
	return c.Render(http.StatusOK, view.PagePost, p)
}

func (h *PostHandler) notFound(c echo.Context) error {
	p := newPage(c, "Not found")
	p.Error = "Post not found"
	return c.Render(http.StatusNotFound, view.PageError, p)
}
