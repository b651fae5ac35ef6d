// Package fs stores blog posts as loose Markdown files: active posts in the
// root posts directory, archived posts in its "archived" subdirectory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/inkpot/blog/internal/core/domain"
)

const (
	archivedDir = "archived"
	dirPerm     = 0o755
	filePerm    = 0o644
)

// PostRepository implements ports.PostRepository on top of an afero.Fs.
type PostRepository struct {
	fs   afero.Fs
	root string
}

// NewPostRepository returns a repository rooted at root on fsys. The root
// directory is created when missing.
func NewPostRepository(fsys afero.Fs, root string) (*PostRepository, error) {
	if err := fsys.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create posts dir: %w", err)
	}
	return &PostRepository{fs: fsys, root: root}, nil
}

// NewOsPostRepository is NewPostRepository on the real filesystem.
func NewOsPostRepository(root string) (*PostRepository, error) {
	return NewPostRepository(afero.NewOsFs(), root)
}

func (r *PostRepository) dir(loc domain.Location) string {
	if loc == domain.LocationArchived {
		return filepath.Join(r.root, archivedDir)
	}
	return r.root
}

func (r *PostRepository) path(id domain.PostID) string {
	return filepath.Join(r.dir(id.Location), id.Filename)
}

func (r *PostRepository) List(_ context.Context, loc domain.Location) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir(loc))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s posts: %w", loc, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), domain.PostExt) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (r *PostRepository) Read(_ context.Context, id domain.PostID) (string, error) {
	b, err := afero.ReadFile(r.fs, r.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrPostNotFound
		}
		return "", fmt.Errorf("read post %s: %w", id, err)
	}
	return string(b), nil
}

func (r *PostRepository) Exists(_ context.Context, id domain.PostID) (bool, error) {
	ok, err := afero.Exists(r.fs, r.path(id))
	if err != nil {
		return false, fmt.Errorf("stat post %s: %w", id, err)
	}
	return ok, nil
}

func (r *PostRepository) Write(_ context.Context, id domain.PostID, content string) error {
	if err := r.fs.MkdirAll(r.dir(id.Location), dirPerm); err != nil {
		return fmt.Errorf("create %s dir: %w", id.Location, err)
	}
	if err := afero.WriteFile(r.fs, r.path(id), []byte(content), filePerm); err != nil {
		return fmt.Errorf("write post %s: %w", id, err)
	}
	return nil
}

func (r *PostRepository) Remove(_ context.Context, id domain.PostID) error {
	if err := r.fs.Remove(r.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrPostNotFound
		}
		return fmt.Errorf("remove post %s: %w", id, err)
	}
	return nil
}

func (r *PostRepository) Move(_ context.Context, from, to domain.PostID) error {
	if err := r.fs.MkdirAll(r.dir(to.Location), dirPerm); err != nil {
		return fmt.Errorf("create %s dir: %w", to.Location, err)
	}
	if err := r.fs.Rename(r.path(from), r.path(to)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrPostNotFound
		}
		return fmt.Errorf("move post %s to %s: %w", from, to, err)
	}
	return nil
}

func (r *PostRepository) Ping(_ context.Context) error {
	fi, err := r.fs.Stat(r.root)
	if err != nil {
		return fmt.Errorf("posts dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("posts dir %s is not a directory", r.root)
	}
	return nil
}
