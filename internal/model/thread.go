package model

import (
	"errors"
	"fmt"
	"regexp"
)

// PageKey errors.
var (
	// ErrEmptyThreadID is returned when the thread identifier is empty.
	ErrEmptyThreadID = errors.New("thread id cannot be empty")
	// ErrInvalidThreadID is returned when the thread identifier contains
	// characters outside [A-Za-z0-9_-].
	ErrInvalidThreadID = errors.New("thread id contains invalid characters")
	// ErrInvalidPageNumber is returned when the page number is less than 1.
	ErrInvalidPageNumber = errors.New("page number must be 1 or greater")
)

// AnonymousAuthor is the author name substituted when no author can be
// extracted from a post fragment. Post.Author is never empty.
const AnonymousAuthor = "anonymous"

// threadIDPattern matches the characters allowed in a thread identifier.
var threadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PageKey identifies one page of one thread. It is the identity used for
// caching and request coalescing; equality is structural.
type PageKey struct {
	// ThreadID is the forum's identifier for the thread.
	ThreadID string `json:"thread_id"`

	// Page is the 1-based page number within the thread.
	Page int `json:"page"`
}

// NewPageKey builds a validated PageKey.
func NewPageKey(threadID string, page int) (PageKey, error) {
	key := PageKey{ThreadID: threadID, Page: page}
	if err := key.Validate(); err != nil {
		return PageKey{}, err
	}
	return key, nil
}

// Validate checks that the key identifies a fetchable page.
func (k PageKey) Validate() error {
	if k.ThreadID == "" {
		return ErrEmptyThreadID
	}
	if !threadIDPattern.MatchString(k.ThreadID) {
		return ErrInvalidThreadID
	}
	if k.Page < 1 {
		return ErrInvalidPageNumber
	}
	return nil
}

// String returns the canonical "<threadID>/<page>" form used as a map key.
func (k PageKey) String() string {
	return fmt.Sprintf("%s/%d", k.ThreadID, k.Page)
}

// Next returns the key for the following page of the same thread.
func (k PageKey) Next() PageKey {
	return PageKey{ThreadID: k.ThreadID, Page: k.Page + 1}
}

// Prev returns the key for the preceding page of the same thread.
// Calling Prev on page 1 returns page 1 unchanged.
func (k PageKey) Prev() PageKey {
	if k.Page <= 1 {
		return k
	}
	return PageKey{ThreadID: k.ThreadID, Page: k.Page - 1}
}

// RawDocument is the decoded markup of one thread page together with the
// key it was fetched for. It is transient: produced by the transport,
// consumed by the extractor, never stored.
type RawDocument struct {
	// Key is the page the document was fetched for.
	Key PageKey

	// Body is the document markup, already decoded to UTF-8.
	Body string
}

// Post is one extracted forum post, immutable once constructed.
type Post struct {
	// ID is the forum's numeric post identifier as a string.
	// Empty when no identifier could be extracted.
	ID string `json:"id,omitempty"`

	// Floor is the 1-based ordinal of the post within the thread
	// ("#12", "12楼"). Zero when no ordinal could be extracted.
	Floor int `json:"floor,omitempty"`

	// Author is the poster's display name. Never empty: when no author
	// can be extracted it holds AnonymousAuthor.
	Author string `json:"author"`

	// PostedAt is the post time exactly as displayed by the forum.
	// It is display text, not a parsed timestamp. Empty when absent.
	PostedAt string `json:"posted_at,omitempty"`

	// Content is the sanitized markup of the post body. It contains no
	// script or style content and no relative references, and is safe
	// to render directly.
	Content string `json:"content"`
}

// ThreadPage is the extraction result for one (thread, page). It is the
// unit stored in the cache and returned to callers; treat it as immutable
// after construction.
type ThreadPage struct {
	// ThreadID is the forum's identifier for the thread.
	ThreadID string `json:"thread_id"`

	// Page is the 1-based page number this value was extracted from.
	Page int `json:"page"`

	// Title is the document title, when one was present. Best-effort;
	// may be empty.
	Title string `json:"title,omitempty"`

	// Posts holds the extracted posts in document order.
	Posts []Post `json:"posts"`

	// HasNext reports whether the document advertised a following page.
	// It is a best-effort hint derived from pagination markers, not a
	// guarantee that the next page exists.
	HasNext bool `json:"has_next"`
}

// Key returns the PageKey this page was extracted for.
func (p *ThreadPage) Key() PageKey {
	return PageKey{ThreadID: p.ThreadID, Page: p.Page}
}

// PostCount returns the number of posts on the page.
func (p *ThreadPage) PostCount() int {
	return len(p.Posts)
}
