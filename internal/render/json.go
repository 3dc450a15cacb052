package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/yomite/threadsnap/internal/model"
)

// JSONWriter outputs pages in JSON format for tool integration and
// programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output. When false, output is
	// compact.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output. The prefix is
// prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePage outputs one page as a JSON object.
func (w *JSONWriter) WritePage(page *model.ThreadPage) (int, error) {
	return w.writeJSON(page)
}

// WriteThread outputs the whole walk wrapped in a ThreadDocument.
func (w *JSONWriter) WriteThread(pages []*model.ThreadPage) (int, error) {
	return w.writeJSON(NewThreadDocument(pages))
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v interface{}) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// ThreadDocument wraps a full thread walk with summary metadata, so
// consumers get the totals without re-deriving them from the pages.
type ThreadDocument struct {
	// ThreadID identifies the thread.
	ThreadID string `json:"thread_id"`

	// Title is the thread title as seen on the first page.
	Title string `json:"title"`

	// PageCount is the number of pages in the walk.
	PageCount int `json:"page_count"`

	// PostCount is the total number of posts across all pages.
	PostCount int `json:"post_count"`

	// SavedAt is when the document was written.
	SavedAt time.Time `json:"saved_at"`

	// Pages holds the walked pages in order.
	Pages []*model.ThreadPage `json:"pages"`
}

// NewThreadDocument builds a ThreadDocument over pages. Identity and
// title come from the first page.
func NewThreadDocument(pages []*model.ThreadPage) *ThreadDocument {
	doc := &ThreadDocument{
		PageCount: len(pages),
		SavedAt:   time.Now(),
		Pages:     pages,
	}

	if len(pages) > 0 {
		doc.ThreadID = pages[0].ThreadID
		doc.Title = pages[0].Title
	}
	for _, page := range pages {
		doc.PostCount += page.PostCount()
	}
	return doc
}
