package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
)

type stubPostService struct {
	listFn      func(ctx context.Context, includeArchived bool) ([]*domain.Post, error)
	getFn       func(ctx context.Context, id domain.PostID) (*domain.Post, error)
	renderFn    func(ctx context.Context, id domain.PostID) (*ports.RenderedPost, error)
	createFn    func(ctx context.Context, title, content string) (*domain.Post, error)
	updateFn    func(ctx context.Context, id domain.PostID, title, content string) (*domain.Post, error)
	archiveFn   func(ctx context.Context, id domain.PostID) error
	unarchiveFn func(ctx context.Context, id domain.PostID) error
	deleteFn    func(ctx context.Context, id domain.PostID) error
}

func (s *stubPostService) List(ctx context.Context, includeArchived bool) ([]*domain.Post, error) {
	return s.listFn(ctx, includeArchived)
}

func (s *stubPostService) Get(ctx context.Context, id domain.PostID) (*domain.Post, error) {
	return s.getFn(ctx, id)
}

func (s *stubPostService) Render(ctx context.Context, id domain.PostID) (*ports.RenderedPost, error) {
	return s.renderFn(ctx, id)
}

func (s *stubPostService) Create(ctx context.Context, title, content string) (*domain.Post, error) {
	return s.createFn(ctx, title, content)
}

func (s *stubPostService) Update(ctx context.Context, id domain.PostID, title, content string) (*domain.Post, error) {
	return s.updateFn(ctx, id, title, content)
}

func (s *stubPostService) Archive(ctx context.Context, id domain.PostID) error {
	return s.archiveFn(ctx, id)
}

func (s *stubPostService) Unarchive(ctx context.Context, id domain.PostID) error {
	return s.unarchiveFn(ctx, id)
}

func (s *stubPostService) Delete(ctx context.Context, id domain.PostID) error {
	return s.deleteFn(ctx, id)
}

type stubAuthService struct {
	authenticateFn func(ctx context.Context, username, password string) (*domain.User, error)
	loginFn        func(ctx context.Context, user *domain.User) (string, error)
	logoutFn       func(ctx context.Context, token string) error
}

func (s *stubAuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	return s.authenticateFn(ctx, username, password)
}

func (s *stubAuthService) Login(ctx context.Context, user *domain.User) (string, error) {
	return s.loginFn(ctx, user)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubAuthService) CurrentUser(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUnauthenticated
}

func (s *stubAuthService) SessionTTL() time.Duration { return time.Hour }

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	r, err := view.New()
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	e.Renderer = r
	e.Validator = NewValidator()
	return e
}

func newFormRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}
