package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "blog_session"

// LoginPath is where unauthenticated admin requests are sent.
const LoginPath = "/login"

const userKey = "user"

// RequireAuthenticated resolves the session cookie and lets the request
// through only for the administrator. Anyone else is redirected to the
// login page.
func RequireAuthenticated(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.CurrentUser(c.Request().Context(), SessionToken(c))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					return c.Redirect(http.StatusFound, LoginPath)
				}
				return err
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// LoadUser resolves the session when there is one, without requiring it.
// Public pages use it to show admin navigation.
func LoadUser(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := SessionToken(c); token != "" {
				if user, err := auth.CurrentUser(c.Request().Context(), token); err == nil {
					c.Set(userKey, user)
				}
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireAuthenticated or LoadUser.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userKey).(*domain.User)
	return user
}

// SessionToken returns the raw session token from the request, if any.
func SessionToken(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func SetSessionCookie(c echo.Context, token string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
}
