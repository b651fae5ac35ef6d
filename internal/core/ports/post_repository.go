package ports

import (
	"context"

	"github.com/inkpot/blog/internal/core/domain"
)

// PostRepository is the on-disk store of post files.
type PostRepository interface {
	// List returns the filenames of every post file in loc, in directory
	// listing order. A missing directory yields an empty list.
	List(ctx context.Context, loc domain.Location) ([]string, error)
	// Read returns the raw content of a post file or domain.ErrPostNotFound.
	Read(ctx context.Context, id domain.PostID) (string, error)
	Exists(ctx context.Context, id domain.PostID) (bool, error)
	// Write creates or truncates the file for id.
	Write(ctx context.Context, id domain.PostID, content string) error
	Remove(ctx context.Context, id domain.PostID) error
	// Move relocates a file, creating the destination directory if needed.
	Move(ctx context.Context, from, to domain.PostID) error
	// Ping verifies the posts directory is reachable.
	Ping(ctx context.Context) error
}
