package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
)

// AdminHandler serves the authenticated post management pages. Every route
// takes the post reference from the wildcard path segment: "name.md" or
// "archived/name.md".
type AdminHandler struct {
	service ports.PostService
}

func NewAdminHandler(service ports.PostService) *AdminHandler {
	return &AdminHandler{service: service}
}

type postRequest struct {
	Title   string `form:"title" validate:"required,notblank"`
	Content string `form:"content" validate:"required,notblank"`
}

// Dashboard handles GET /admin: active and archived posts.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	posts, err := h.service.List(c.Request().Context(), true)
	if err != nil {
		return err
	}

	p := newPage(c, "Admin")
	p.Notice = c.QueryParam("notice")
	for _, post := range posts {
		if post.Archived() {
			p.Archived = append(p.Archived, post)
		} else {
			p.Posts = append(p.Posts, post)
		}
	}
	return c.Render(http.StatusOK, view.PageAdmin, p)
}

// NewForm handles GET /admin/new.
func (h *AdminHandler) NewForm(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, "New post", "/admin/new", view.PostForm{}, "")
}

// Create handles POST /admin/new.
func (h *AdminHandler) Create(c echo.Context) error {
	form, status, msg := h.bindForm(c)
	if msg != "" {
		return h.renderForm(c, status, "New post", "/admin/new", form, msg)
	}

	post, err := h.service.Create(c.Request().Context(), form.Title, form.Content)
	if err != nil {
		if status, msg, ok := formError(err); ok {
			return h.renderForm(c, status, "New post", "/admin/new", form, msg)
		}
		return err
	}
	return redirectAdmin(c, "Created "+post.Title)
}

// EditForm handles GET /admin/edit/*.
func (h *AdminHandler) EditForm(c echo.Context) error {
	id, err := postRef(c, "*")
	if err != nil {
		return redirectAdmin(c, "Post not found")
	}

	post, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if notice, ok := postNotice(err); ok {
			return redirectAdmin(c, notice)
		}
		return err
	}

	form := view.PostForm{Title: post.Title, Content: post.Content}
	return h.renderForm(c, http.StatusOK, "Edit post", "/admin/edit/"+id.URLPath(), form, "")
}

// Update handles POST /admin/edit/*.
func (h *AdminHandler) Update(c echo.Context) error {
	id, err := postRef(c, "*")
	if err != nil {
		return redirectAdmin(c, "Post not found")
	}
	action := "/admin/edit/" + id.URLPath()

	form, status, msg := h.bindForm(c)
	if msg != "" {
		return h.renderForm(c, status, "Edit post", action, form, msg)
	}

	post, err := h.service.Update(c.Request().Context(), id, form.Title, form.Content)
	if err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			return redirectAdmin(c, "Post not found")
		}
		if status, msg, ok := formError(err); ok {
			return h.renderForm(c, status, "Edit post", action, form, msg)
		}
		return err
	}
	return redirectAdmin(c, "Saved "+post.Title)
}

// Archive handles GET /admin/archive/*.
func (h *AdminHandler) Archive(c echo.Context) error {
	return h.lifecycle(c, h.service.Archive, "Archived")
}

// Unarchive handles GET /admin/unarchive/*.
func (h *AdminHandler) Unarchive(c echo.Context) error {
	return h.lifecycle(c, h.service.Unarchive, "Unarchived")
}

// Delete handles GET /admin/delete/*.
func (h *AdminHandler) Delete(c echo.Context) error {
	return h.lifecycle(c, h.service.Delete, "Deleted")
}

// lifecycle runs a single-post operation and redirects to the dashboard
// with its outcome.
func (h *AdminHandler) lifecycle(c echo.Context, op func(ctx context.Context, id domain.PostID) error, done string) error {
	id, err := postRef(c, "*")
	if err != nil {
		return redirectAdmin(c, "Post not found")
	}

	if err := op(c.Request().Context(), id); err != nil {
		if notice, ok := postNotice(err); ok {
			return redirectAdmin(c, notice)
		}
		return err
	}
	return redirectAdmin(c, done+" "+domain.TitleFromFilename(id.Filename))
}

// bindForm reads and validates the post form. A non-empty msg means the
// form must be shown again with that error and status.
func (h *AdminHandler) bindForm(c echo.Context) (form view.PostForm, status int, msg string) {
	var req postRequest
	if err := c.Bind(&req); err != nil {
		return form, http.StatusBadRequest, "invalid form submission"
	}
	form = view.PostForm{Title: req.Title, Content: req.Content}
	if err := c.Validate(&req); err != nil {
		return form, http.StatusUnprocessableEntity, err.Error()
	}
	return form, http.StatusOK, ""
}

func (h *AdminHandler) renderForm(c echo.Context, status int, title, action string, form view.PostForm, msg string) error {
	p := newPage(c, title)
	p.Action = action
	p.Form = form
	p.Error = msg
	return c.Render(status, view.PageForm, p)
}

// formError maps errors the admin can fix by changing the form.
func formError(err error) (status int, msg string, ok bool) {
	notice, ok := postNotice(err)
	if !ok {
		return 0, "", false
	}
	switch {
	case errors.Is(err, domain.ErrPostExists):
		return http.StatusConflict, notice, true
	case errors.Is(err, domain.ErrInvalidTitle):
		return http.StatusUnprocessableEntity, notice, true
	}
	return 0, "", false
}
