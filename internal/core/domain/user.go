package domain

import "errors"

// AdminUserID is the only user id a session can resolve to.
const AdminUserID = "1"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
)

// User is the blog's single administrator, built from configuration.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
