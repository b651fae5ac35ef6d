package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"

	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
	"github.com/inkpot/blog/internal/pkg/keylock"
	"github.com/inkpot/blog/internal/pkg/metrics"
)

// PostService implements the post lifecycle on top of a PostRepository.
// Mutations are serialized per bare filename, so an edit racing a delete or
// two renames onto the same name cannot interleave.
type PostService struct {
	repo     ports.PostRepository
	markdown ports.MarkdownRenderer
	locks    *keylock.Locker
	logger   zerolog.Logger
}

func NewPostService(repo ports.PostRepository, markdown ports.MarkdownRenderer, logger zerolog.Logger) *PostService {
	return &PostService{
		repo:     repo,
		markdown: markdown,
		locks:    keylock.New(0),
		logger:   logger,
	}
}

// List returns active posts, followed by archived ones when includeArchived
// is set. Order within a directory is the directory listing order.
func (s *PostService) List(ctx context.Context, includeArchived bool) ([]*domain.Post, error) {
	locs := []domain.Location{domain.LocationActive}
	if includeArchived {
		locs = append(locs, domain.LocationArchived)
	}

	var posts []*domain.Post
	for _, loc := range locs {
		names, err := s.repo.List(ctx, loc)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			id := domain.PostID{Location: loc, Filename: name}
			content, err := s.repo.Read(ctx, id)
			if errors.Is(err, domain.ErrPostNotFound) {
				// removed between listing and reading
				continue
			}
			if err != nil {
				return nil, err
			}
			posts = append(posts, domain.NewPost(id, content))
		}
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id domain.PostID) (*domain.Post, error) {
	if !domain.ValidFilename(id.Filename) {
		return nil, domain.ErrPostNotFound
	}
	content, err := s.repo.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewPost(id, content), nil
}

// Render loads a post and converts its Markdown body to HTML.
func (s *PostService) Render(ctx context.Context, id domain.PostID) (*ports.RenderedPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.markdown.Render([]byte(post.Content))
	if err != nil {
		return nil, fmt.Errorf("render post %s: %w", id, err)
	}
	metrics.PostsRenderedTotal.Inc()
	return &ports.RenderedPost{Post: post, HTML: template.HTML(out)}, nil
}

// Create writes a new active post. Only the active directory is checked for
// an existing file with the derived name.
func (s *PostService) Create(ctx context.Context, title, content string) (post *domain.Post, err error) {
	defer func() { observe("create", err) }()

	id := domain.ActiveID(domain.FilenameFromTitle(title))
	if !domain.ValidFilename(id.Filename) {
		return nil, domain.ErrInvalidTitle
	}

	unlock := s.locks.Lock(id.Filename)
	defer unlock()

	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrPostExists
	}

	if err := s.repo.Write(ctx, id, content); err != nil {
		s.logger.Error().Err(err).Str("post", id.String()).Msg("failed to create post")
		return nil, err
	}

	s.logger.Info().Str("post", id.String()).Msg("post created")
	return domain.NewPost(id, content), nil
}

// Update rewrites a post. When the new title derives a different filename
// the post is renamed within its current directory.
func (s *PostService) Update(ctx context.Context, id domain.PostID, title, content string) (post *domain.Post, err error) {
	defer func() { observe("update", err) }()

	if !domain.ValidFilename(id.Filename) {
		return nil, domain.ErrPostNotFound
	}
	newID := domain.PostID{Location: id.Location, Filename: domain.FilenameFromTitle(title)}
	if !domain.ValidFilename(newID.Filename) {
		return nil, domain.ErrInvalidTitle
	}

	unlock := s.locks.Lock(id.Filename, newID.Filename)
	defer unlock()

	if err := s.mustExist(ctx, id); err != nil {
		return nil, err
	}

	if newID == id {
		if err := s.repo.Write(ctx, id, content); err != nil {
			return nil, err
		}
		s.logger.Info().Str("post", id.String()).Msg("post updated")
		return domain.NewPost(id, content), nil
	}

	taken, err := s.repo.Exists(ctx, newID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrPostExists
	}

	// New file first: a failure in between leaves both copies, never neither.
	if err := s.repo.Write(ctx, newID, content); err != nil {
		return nil, err
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("from", id.String()).Str("to", newID.String()).Msg("renamed post but failed to remove old file")
		return nil, err
	}

	s.logger.Info().Str("from", id.String()).Str("to", newID.String()).Msg("post renamed")
	return domain.NewPost(newID, content), nil
}

// Archive moves an active post into the archived directory.
func (s *PostService) Archive(ctx context.Context, id domain.PostID) (err error) {
	defer func() { observe("archive", err) }()

	if id.Archived() {
		return domain.ErrAlreadyArchived
	}
	return s.move(ctx, id, domain.ArchivedID(id.Filename), domain.ErrAlreadyArchived)
}

// Unarchive moves an archived post back to the active directory under its
// original filename.
func (s *PostService) Unarchive(ctx context.Context, id domain.PostID) (err error) {
	defer func() { observe("unarchive", err) }()

	if !id.Archived() {
		return domain.ErrNotArchived
	}
	return s.move(ctx, id, domain.ActiveID(id.Filename), domain.ErrNotArchived)
}

// move relocates from -> to. When from is missing but to already holds the
// file, the post is already where the caller wants it and wrongState is
// returned.
func (s *PostService) move(ctx context.Context, from, to domain.PostID, wrongState error) error {
	if !domain.ValidFilename(from.Filename) {
		return domain.ErrPostNotFound
	}

	unlock := s.locks.Lock(from.Filename)
	defer unlock()

	srcExists, err := s.repo.Exists(ctx, from)
	if err != nil {
		return err
	}
	dstExists, err := s.repo.Exists(ctx, to)
	if err != nil {
		return err
	}

	switch {
	case !srcExists && dstExists:
		return wrongState
	case !srcExists:
		return domain.ErrPostNotFound
	case dstExists:
		return domain.ErrPostExists
	}

	if err := s.repo.Move(ctx, from, to); err != nil {
		return err
	}
	s.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("post moved")
	return nil
}

// Delete removes a post file from whichever directory id names.
func (s *PostService) Delete(ctx context.Context, id domain.PostID) (err error) {
	defer func() { observe("delete", err) }()

	if !domain.ValidFilename(id.Filename) {
		return domain.ErrPostNotFound
	}

	unlock := s.locks.Lock(id.Filename)
	defer unlock()

	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("post", id.String()).Msg("post deleted")
	return nil
}

func (s *PostService) mustExist(ctx context.Context, id domain.PostID) error {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPostNotFound
	}
	return nil
}

// observe records the outcome of a mutation.
func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPostNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrPostExists):
		result = "conflict"
	case errors.Is(err, domain.ErrAlreadyArchived), errors.Is(err, domain.ErrNotArchived), errors.Is(err, domain.ErrInvalidTitle):
		result = "invalid_state"
	default:
		result = "error"
	}
	metrics.PostMutationsTotal.WithLabelValues(op, result).Inc()
}
