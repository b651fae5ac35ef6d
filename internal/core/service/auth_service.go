package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
	"github.com/inkpot/blog/internal/pkg/metrics"
)

// AuthService is the session gate for the blog's single administrator.
type AuthService struct {
	admin      domain.User
	sessions   ports.SessionStore
	secret     []byte
	sessionTTL time.Duration
}

// NewAuthService builds the gate for the configured credential. The admin's
// ID is always domain.AdminUserID.
func NewAuthService(username, passwordHash string, sessions ports.SessionStore, secret string, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		admin: domain.User{
			ID:           domain.AdminUserID,
			Username:     username,
			PasswordHash: passwordHash,
		},
		sessions:   sessions,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *AuthService) Authenticate(_ context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" || username != s.admin.Username {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	user := s.admin
	return &user, nil
}

// Login registers a fresh session for user and returns it as a signed token.
func (s *AuthService) Login(ctx context.Context, user *domain.User) (string, error) {
	if user == nil || user.ID != s.admin.ID {
		return "", domain.ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	if err := s.sessions.Save(ctx, sessionID, s.sessionTTL); err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Logout forgets the session behind token. Unknown or invalid tokens are
// ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.ID)
}

// CurrentUser resolves a session token back to the administrator.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	live, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, domain.ErrUnauthenticated
	}

	if claims.Subject != s.admin.ID {
		return nil, domain.ErrUnauthenticated
	}
	user := s.admin
	return &user, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.ID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
