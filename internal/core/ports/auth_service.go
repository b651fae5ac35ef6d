package ports

import (
	"context"
	"time"

	"github.com/inkpot/blog/internal/core/domain"
)

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	// Login opens a session for user and returns the signed session token.
	Login(ctx context.Context, user *domain.User) (string, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	SessionTTL() time.Duration
}

// SessionStore tracks which session ids are still live.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
