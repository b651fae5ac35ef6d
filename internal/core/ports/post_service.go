package ports

import (
	"context"
	"html/template"

	"github.com/inkpot/blog/internal/core/domain"
)

// RenderedPost is a post with its Markdown converted to HTML.
type RenderedPost struct {
	Post *domain.Post
	HTML template.HTML
}

// PostService defines the blog post use cases.
type PostService interface {
	List(ctx context.Context, includeArchived bool) ([]*domain.Post, error)
	Get(ctx context.Context, id domain.PostID) (*domain.Post, error)
	Render(ctx context.Context, id domain.PostID) (*RenderedPost, error)
	Create(ctx context.Context, title, content string) (*domain.Post, error)
	Update(ctx context.Context, id domain.PostID, title, content string) (*domain.Post, error)
	Archive(ctx context.Context, id domain.PostID) error
	Unarchive(ctx context.Context, id domain.PostID) error
	Delete(ctx context.Context, id domain.PostID) error
}

// MarkdownRenderer converts Markdown source into HTML.
type MarkdownRenderer interface {
	Render(markdown []byte) ([]byte, error)
}
