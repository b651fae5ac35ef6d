package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/api/middleware"
	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/domain"
)

const adminPath = "/admin"

// newPage starts the template data for c with the signed-in user, if any.
func newPage(c echo.Context, title string) view.Page {
	return view.Page{
		Title: title,
		User:  middleware.CurrentUser(c),
	}
}

// redirectAdmin sends the admin back to the dashboard, optionally with a
// one-line notice.
func redirectAdmin(c echo.Context, notice string) error {
	target := adminPath
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// postRef reads a post reference from the path parameter name. Echo routes
// on the raw path when the request carries escapes the default encoding
// would not produce, and then leaves the value escaped.
func postRef(c echo.Context, name string) (domain.PostID, error) {
	ref := c.Param(name)
	if c.Request().URL.RawPath != "" {
		unescaped, err := url.PathUnescape(ref)
		if err != nil {
			return domain.PostID{}, domain.ErrInvalidPostID
		}
		ref = unescaped
	}
	return domain.ParsePostID(ref)
}

// postNotice maps an expected post error to the notice shown to the admin.
// ok is false for errors that are not part of the post lifecycle.
func postNotice(err error) (notice string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrPostNotFound), errors.Is(err, domain.ErrInvalidPostID):
		return "Post not found", true
	case errors.Is(err, domain.ErrPostExists):
		return "A post with that title already exists", true
	case errors.Is(err, domain.ErrAlreadyArchived):
		return "Post is already archived", true
	case errors.Is(err, domain.ErrNotArchived):
		return "Post is not archived", true
	case errors.Is(err, domain.ErrInvalidTitle):
		return "That title cannot be used as a post filename", true
	}
	return "", false
}
