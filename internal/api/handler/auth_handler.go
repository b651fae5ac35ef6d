package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/api/middleware"
	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageLogin, newPage(c, "Log in"))
}

// Login handles POST /login. Bad or missing credentials re-render the form.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return h.loginFailed(c, req.Username)
	}
	if err := c.Validate(&req); err != nil {
		return h.loginFailed(c, req.Username)
	}

	ctx := c.Request().Context()
	user, err := h.authService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return h.loginFailed(c, req.Username)
		}
		return err
	}

	token, err := h.authService.Login(ctx, user)
	if err != nil {
		return err
	}

	middleware.SetSessionCookie(c, token, h.authService.SessionTTL())
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), middleware.SessionToken(c)); err != nil {
		return err
	}
	middleware.ClearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) loginFailed(c echo.Context, username string) error {
	p := newPage(c, "Log in")
	p.Error = "Invalid username or password"
	p.Username = username
	return c.Render(http.StatusUnauthorized, view.PageLogin, p)
}
