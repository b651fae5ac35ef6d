package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/inkpot/blog/internal/core/domain"
	"github.com/inkpot/blog/internal/core/ports"
	"github.com/inkpot/blog/internal/infrastructure/fs"
	"github.com/inkpot/blog/internal/infrastructure/markdown"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestPostService(t *testing.T) (*PostService, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	repo, err := fs.NewPostRepository(mem, "/posts")
	if err != nil {
		t.Fatalf("NewPostRepository: %v", err)
	}
	return NewPostService(repo, markdown.NewGoldmarkRenderer(markdown.Options{}), zerolog.Nop()), mem
}

func listed(posts []*domain.Post, id domain.PostID) bool {
	for _, p := range posts {
		if p.ID == id {
			return true
		}
	}
	return false
}

// overlapRepo counts file mutations that run while another mutation of the
// same filename is still in flight. Each mutation holds its slot briefly so
// unserialized callers would collide.
type overlapRepo struct {
	ports.PostRepository

	mu       sync.Mutex
	inFlight map[string]int
	overlaps int
}

func newOverlapPostService(t *testing.T) (*PostService, *overlapRepo) {
	t.Helper()
	repo, err := fs.NewPostRepository(afero.NewMemMapFs(), "/posts")
	if err != nil {
		t.Fatalf("NewPostRepository: %v", err)
	}
	wrapped := &overlapRepo{PostRepository: repo, inFlight: map[string]int{}}
	return NewPostService(wrapped, markdown.NewGoldmarkRenderer(markdown.Options{}), zerolog.Nop()), wrapped
}

func (r *overlapRepo) enter(filename string) func() {
	r.mu.Lock()
	r.inFlight[filename]++
	if r.inFlight[filename] > 1 {
		r.overlaps++
	}
	r.mu.Unlock()

	time.Sleep(time.Millisecond)
	return func() {
		r.mu.Lock()
		r.inFlight[filename]--
		r.mu.Unlock()
	}
}

func (r *overlapRepo) Write(ctx context.Context, id domain.PostID, content string) error {
	defer r.enter(id.Filename)()
	return r.PostRepository.Write(ctx, id, content)
}

func (r *overlapRepo) Remove(ctx context.Context, id domain.PostID) error {
	defer r.enter(id.Filename)()
	return r.PostRepository.Remove(ctx, id)
}

func (r *overlapRepo) Move(ctx context.Context, from, to domain.PostID) error {
	defer r.enter(from.Filename)()
	return r.PostRepository.Move(ctx, from, to)
}

func (r *overlapRepo) overlapCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlaps
}

type failingRenderer struct{}

func (failingRenderer) Render([]byte) ([]byte, error) { return nil, errors.New("boom") }

// ---------------------------------------------------------------------------
// Create / Get / Render
// ---------------------------------------------------------------------------

func TestPostService_Create_DerivesFilename(t *testing.T) {
	svc, mem := newTestPostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, "My First Post", "Hello")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.ID != domain.ActiveID("my_first_post.md") {
		t.Fatalf("unexpected id: %+v", post.ID)
	}
	if post.Title != "My First Post" {
		t.Fatalf("unexpected title: %s", post.Title)
	}

	b, err := afero.ReadFile(mem, "/posts/my_first_post.md")
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(b) != "Hello" {
		t.Fatalf("unexpected file content: %q", b)
	}
}

func TestPostService_Create_ConflictWithActive(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "Hello World", "one"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "hello-world", "two"); err != domain.ErrPostExists {
		t.Fatalf("expected ErrPostExists, got %v", err)
	}

	post, _ := svc.Get(ctx, domain.ActiveID("hello_world.md"))
	if post.Content != "one" {
		t.Fatalf("conflicting create overwrote content: %q", post.Content)
	}
}

func TestPostService_Create_ArchivedCollisionAllowed(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello World", "old")
	if err := svc.Archive(ctx, domain.ActiveID("hello_world.md")); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if _, err := svc.Create(ctx, "Hello World", "new"); err != nil {
		t.Fatalf("expected create to succeed next to archived post, got %v", err)
	}
}

func TestPostService_Create_InvalidTitle(t *testing.T) {
	svc, _ := newTestPostService(t)
	for _, title := range []string{"", "   ", "../escape", "a/b"} {
		if _, err := svc.Create(context.Background(), title, "x"); err != domain.ErrInvalidTitle {
			t.Fatalf("Create(%q): expected ErrInvalidTitle, got %v", title, err)
		}
	}
}

func TestPostService_Get_NotFound(t *testing.T) {
	svc, _ := newTestPostService(t)
	if _, err := svc.Get(context.Background(), domain.ActiveID("nope.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), domain.ActiveID("../nope.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound for unsafe name, got %v", err)
	}
}

func TestPostService_Render(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello World", "Hi there")
	rendered, err := svc.Render(ctx, domain.ActiveID("hello_world.md"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(rendered.HTML), "<p>Hi there</p>") {
		t.Fatalf("unexpected html: %s", rendered.HTML)
	}
	if rendered.Post.Title != "Hello World" {
		t.Fatalf("unexpected title: %s", rendered.Post.Title)
	}
}

func TestPostService_Render_ConverterError(t *testing.T) {
	mem := afero.NewMemMapFs()
	repo, _ := fs.NewPostRepository(mem, "/posts")
	svc := NewPostService(repo, failingRenderer{}, zerolog.Nop())
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello", "x")
	if _, err := svc.Render(ctx, domain.ActiveID("hello.md")); err == nil {
		t.Fatalf("expected converter error")
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestPostService_Update_InPlace(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello World", "v1")
	post, err := svc.Update(ctx, domain.ActiveID("hello_world.md"), "Hello World", "v2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if post.ID != domain.ActiveID("hello_world.md") || post.Content != "v2" {
		t.Fatalf("unexpected post: %+v", post)
	}
	got, _ := svc.Get(ctx, post.ID)
	if got.Content != "v2" {
		t.Fatalf("content not overwritten: %q", got.Content)
	}
}

func TestPostService_Update_Rename(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello World", "v1")
	post, err := svc.Update(ctx, domain.ActiveID("hello_world.md"), "Goodbye World", "v2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if post.ID != domain.ActiveID("goodbye_world.md") {
		t.Fatalf("unexpected id: %+v", post.ID)
	}
	if _, err := svc.Get(ctx, domain.ActiveID("hello_world.md")); err != domain.ErrPostNotFound {
		t.Fatalf("old file still present: %v", err)
	}
	got, err := svc.Get(ctx, post.ID)
	if err != nil || got.Content != "v2" {
		t.Fatalf("renamed post not readable: %v %+v", err, got)
	}
}

func TestPostService_Update_RenameConflict(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "First", "one")
	_, _ = svc.Create(ctx, "Second", "two")

	if _, err := svc.Update(ctx, domain.ActiveID("first.md"), "Second", "clobber"); err != domain.ErrPostExists {
		t.Fatalf("expected ErrPostExists, got %v", err)
	}
	first, _ := svc.Get(ctx, domain.ActiveID("first.md"))
	second, _ := svc.Get(ctx, domain.ActiveID("second.md"))
	if first.Content != "one" || second.Content != "two" {
		t.Fatalf("conflicting update changed files: %q %q", first.Content, second.Content)
	}
}

func TestPostService_Update_ArchivedStaysArchived(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Old News", "v1")
	_ = svc.Archive(ctx, domain.ActiveID("old_news.md"))

	post, err := svc.Update(ctx, domain.ArchivedID("old_news.md"), "Older News", "v2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if post.ID != domain.ArchivedID("older_news.md") {
		t.Fatalf("expected archived rename, got %+v", post.ID)
	}
}

func TestPostService_Update_NotFound(t *testing.T) {
	svc, _ := newTestPostService(t)
	if _, err := svc.Update(context.Background(), domain.ActiveID("ghost.md"), "Ghost", "x"); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Archive / Unarchive / Delete
// ---------------------------------------------------------------------------

func TestPostService_ArchiveUnarchive_RoundTrip(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello World", "Hi")
	active := domain.ActiveID("hello_world.md")
	archived := domain.ArchivedID("hello_world.md")

	if err := svc.Archive(ctx, active); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	public, _ := svc.List(ctx, false)
	if listed(public, active) {
		t.Fatalf("archived post still in active listing")
	}
	all, _ := svc.List(ctx, true)
	if !listed(all, archived) {
		t.Fatalf("archived post missing from full listing")
	}

	if err := svc.Unarchive(ctx, archived); err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	public, _ = svc.List(ctx, false)
	if !listed(public, active) {
		t.Fatalf("unarchived post missing from active listing")
	}
	all, _ = svc.List(ctx, true)
	if listed(all, archived) {
		t.Fatalf("unarchived post still listed as archived")
	}
	post, err := svc.Get(ctx, active)
	if err != nil || post.Content != "Hi" {
		t.Fatalf("content lost across archive round trip: %v %+v", err, post)
	}
}

func TestPostService_Archive_States(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	if err := svc.Archive(ctx, domain.ActiveID("ghost.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	_, _ = svc.Create(ctx, "Hello", "x")
	_ = svc.Archive(ctx, domain.ActiveID("hello.md"))

	if err := svc.Archive(ctx, domain.ArchivedID("hello.md")); err != domain.ErrAlreadyArchived {
		t.Fatalf("expected ErrAlreadyArchived for archived id, got %v", err)
	}
	if err := svc.Archive(ctx, domain.ActiveID("hello.md")); err != domain.ErrAlreadyArchived {
		t.Fatalf("expected ErrAlreadyArchived for stale active id, got %v", err)
	}
}

func TestPostService_Archive_ArchivedSlotTaken(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Hello", "old")
	_ = svc.Archive(ctx, domain.ActiveID("hello.md"))
	_, _ = svc.Create(ctx, "Hello", "new")

	if err := svc.Archive(ctx, domain.ActiveID("hello.md")); err != domain.ErrPostExists {
		t.Fatalf("expected ErrPostExists, got %v", err)
	}
}

func TestPostService_Unarchive_States(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	if err := svc.Unarchive(ctx, domain.ArchivedID("ghost.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	_, _ = svc.Create(ctx, "Hello", "x")
	if err := svc.Unarchive(ctx, domain.ActiveID("hello.md")); err != domain.ErrNotArchived {
		t.Fatalf("expected ErrNotArchived, got %v", err)
	}
	if err := svc.Unarchive(ctx, domain.ArchivedID("hello.md")); err != domain.ErrNotArchived {
		t.Fatalf("expected ErrNotArchived for stale archived id, got %v", err)
	}
}

func TestPostService_Delete(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "Keep", "k")
	_, _ = svc.Create(ctx, "Gone", "g")
	_ = svc.Archive(ctx, domain.ActiveID("keep.md"))

	if err := svc.Delete(ctx, domain.ActiveID("gone.md")); err != nil {
		t.Fatalf("Delete active: %v", err)
	}
	if err := svc.Delete(ctx, domain.ArchivedID("keep.md")); err != nil {
		t.Fatalf("Delete archived: %v", err)
	}

	all, _ := svc.List(ctx, true)
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d posts", len(all))
	}
	if _, err := svc.Get(ctx, domain.ActiveID("gone.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, domain.ActiveID("gone.md")); err != domain.ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound on second delete, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestPostService_ConcurrentEditsSameFile(t *testing.T) {
	svc, repo := newOverlapPostService(t)
	ctx := context.Background()
	id := domain.ActiveID("shared.md")

	if _, err := svc.Create(ctx, "Shared", "v0"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 50
	submitted := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		submitted[fmt.Sprintf("v%d", i)] = true
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Update(ctx, id, "Shared", fmt.Sprintf("v%d", i)); err != nil {
				t.Errorf("Update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := repo.overlapCount(); got != 0 {
		t.Fatalf("expected edits of one file to be serialized, saw %d overlapping writes", got)
	}
	post, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !submitted[post.Content] {
		t.Fatalf("final content %q is not one of the submitted edits", post.Content)
	}
}

func TestPostService_ConcurrentRenamesOntoSameName(t *testing.T) {
	svc, repo := newOverlapPostService(t)
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		if _, err := svc.Create(ctx, fmt.Sprintf("Draft %d", i), fmt.Sprintf("draft %d", i)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		renamed   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Update(ctx, domain.ActiveID(fmt.Sprintf("draft_%d.md", i)), "Final", fmt.Sprintf("final %d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				renamed++
			case errors.Is(err, domain.ErrPostExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if renamed != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one rename to win, got %d renamed / %d conflicts", renamed, conflicts)
	}
	if got := repo.overlapCount(); got != 0 {
		t.Fatalf("expected renames onto one name to be serialized, saw %d overlapping writes", got)
	}
	posts, _ := svc.List(ctx, false)
	if len(posts) != n {
		t.Fatalf("expected %d posts after renames, got %d", n, len(posts))
	}
}

func TestPostService_ConcurrentEditAndDelete(t *testing.T) {
	svc, repo := newOverlapPostService(t)
	ctx := context.Background()
	id := domain.ActiveID("racy.md")

	_, _ = svc.Create(ctx, "Racy", "v0")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Update(ctx, id, "Racy", "v1")
		if err != nil && err != domain.ErrPostNotFound {
			t.Errorf("Update: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := svc.Delete(ctx, id); err != nil {
			t.Errorf("Delete: %v", err)
		}
	}()
	wg.Wait()

	// Either the delete ran last and the post is gone, or the update ran
	// after it and was rejected. The update can never resurrect the file.
	if _, err := svc.Get(ctx, id); err != domain.ErrPostNotFound {
		t.Fatalf("expected post to be deleted, got %v", err)
	}
	if got := repo.overlapCount(); got != 0 {
		t.Fatalf("expected edit and delete to be serialized, saw %d overlapping mutations", got)
	}
}
