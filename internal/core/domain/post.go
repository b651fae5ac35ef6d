package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// PostExt is the extension every post file carries.
const PostExt = ".md"

// ArchivedPrefix is how an archived post is referenced in URLs.
const ArchivedPrefix = "archived/"

// Location is the directory a post file lives in.
type Location string

const (
	LocationActive   Location = "active"
	LocationArchived Location = "archived"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrPostExists      = errors.New("a post with that title already exists")
	ErrAlreadyArchived = errors.New("post is already archived")
	ErrNotArchived     = errors.New("post is not archived")
	ErrInvalidPostID   = errors.New("invalid post reference")
	ErrInvalidTitle    = errors.New("title cannot be used as a post filename")
)

// PostID identifies a post file: which directory, and the bare filename.
type PostID struct {
	Location Location
	Filename string
}

// ActiveID returns the id of an active post file.
func ActiveID(filename string) PostID {
	return PostID{Location: LocationActive, Filename: filename}
}

// ArchivedID returns the id of an archived post file.
func ArchivedID(filename string) PostID {
	return PostID{Location: LocationArchived, Filename: filename}
}

// Archived reports whether the id points into the archived directory.
func (id PostID) Archived() bool {
	return id.Location == LocationArchived
}

// String renders the id in its URL form: "name.md" or "archived/name.md".
func (id PostID) String() string {
	if id.Archived() {
		return ArchivedPrefix + id.Filename
	}
	return id.Filename
}

// URLPath is String with the filename escaped as a single path segment, for
// use in links. ParsePostID accepts it once the router has unescaped it.
func (id PostID) URLPath() string {
	if id.Archived() {
		return ArchivedPrefix + url.PathEscape(id.Filename)
	}
	return url.PathEscape(id.Filename)
}

// ParsePostID parses the URL form produced by PostID.String. The filename
// must be a bare markdown file name.
func ParsePostID(ref string) (PostID, error) {
	id := ActiveID(ref)
	if rest, ok := strings.CutPrefix(ref, ArchivedPrefix); ok {
		id = ArchivedID(rest)
	}
	if !ValidFilename(id.Filename) {
		return PostID{}, ErrInvalidPostID
	}
	return id, nil
}

// ValidFilename reports whether name is safe to join onto a posts directory.
func ValidFilename(name string) bool {
	if !strings.HasSuffix(name, PostExt) || len(name) == len(PostExt) {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

// FilenameFromTitle derives the on-disk filename for a title:
// "My First Post" -> "my_first_post.md".
func FilenameFromTitle(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name + PostExt
}

// TitleFromFilename is the inverse of FilenameFromTitle for simple titles:
// "my_first_post.md" -> "My First Post". Hyphens, punctuation and
// irregular casing do not survive the round trip.
func TitleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, PostExt)
	words := strings.Split(strings.ReplaceAll(base, "_", " "), " ")
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

// Post is a blog post loaded from disk. CreatedAt is stamped when the value
// is built and is never persisted.
type Post struct {
	ID        PostID
	Title     string
	Content   string
	CreatedAt time.Time
}

// NewPost builds a Post for the file id with the given content.
func NewPost(id PostID, content string) *Post {
	return &Post{
		ID:        id,
		Title:     TitleFromFilename(id.Filename),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Archived reports whether the post lives in the archived directory.
func (p *Post) Archived() bool {
	return p.ID.Archived()
}
