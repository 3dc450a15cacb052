package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/yomite/threadsnap/internal/model"
)

// separatorWidth is the width of the section rules in text output.
const separatorWidth = 70

// SimpleWriter outputs human-readable text for terminal display. The
// format uses plain ASCII rules so it pipes cleanly into files and
// pagers.
type SimpleWriter struct {
	baseWriter

	// verbose adds post identifiers to each post header.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given
// writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePage outputs one page in human-readable format.
func (w *SimpleWriter) WritePage(page *model.ThreadPage) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, page)
	w.writePageBody(&sb, page)
	w.writeFooter(&sb, 1, page.PostCount())

	return w.output.Write([]byte(sb.String()))
}

// WriteThread outputs a whole thread walk, pages in order.
func (w *SimpleWriter) WriteThread(pages []*model.ThreadPage) (int, error) {
	if len(pages) == 0 {
		return w.output.Write([]byte("No pages loaded.\n"))
	}

	var sb strings.Builder

	w.writeHeader(&sb, pages[0])
	posts := 0
	for _, page := range pages {
		w.writePageBanner(&sb, page)
		w.writePageBody(&sb, page)
		posts += page.PostCount()
	}
	w.writeFooter(&sb, len(pages), posts)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the thread banner.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, page *model.ThreadPage) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", separatorWidth))
	sb.WriteString("\n")
	if page.Title != "" {
		sb.WriteString(fmt.Sprintf("THREAD %s: %s\n", page.ThreadID, page.Title))
	} else {
		sb.WriteString(fmt.Sprintf("THREAD %s\n", page.ThreadID))
	}
	sb.WriteString(strings.Repeat("=", separatorWidth))
	sb.WriteString("\n")
}

// writePageBanner writes the per-page divider used in thread output.
func (w *SimpleWriter) writePageBanner(sb *strings.Builder, page *model.ThreadPage) {
	sb.WriteString("\n")
	if page.HasNext {
		sb.WriteString(fmt.Sprintf("--- Page %d (continues) ---\n", page.Page))
	} else {
		sb.WriteString(fmt.Sprintf("--- Page %d ---\n", page.Page))
	}
}

// writePageBody writes every post of one page.
func (w *SimpleWriter) writePageBody(sb *strings.Builder, page *model.ThreadPage) {
	for _, post := range page.Posts {
		w.writePost(sb, post)
	}
}

// writePost writes one post: a header line with floor, author, and
// timestamp, then the flattened content.
func (w *SimpleWriter) writePost(sb *strings.Builder, post model.Post) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", separatorWidth))
	sb.WriteString("\n")

	header := post.Author
	if post.Floor > 0 {
		header = fmt.Sprintf("#%d  %s", post.Floor, post.Author)
	}
	if post.PostedAt != "" {
		header += "  " + post.PostedAt
	}
	if w.verbose && post.ID != "" {
		header += fmt.Sprintf("  (post %s)", post.ID)
	}
	sb.WriteString(header)
	sb.WriteString("\n\n")

	text := Flatten(post.Content)
	if text == "" {
		text = "(no text content)"
	}
	sb.WriteString(text)
	sb.WriteString("\n")
}

// writeFooter writes the closing totals line.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, pages, posts int) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", separatorWidth))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%d page(s), %d post(s)\n", pages, posts))
	sb.WriteString(strings.Repeat("=", separatorWidth))
	sb.WriteString("\n")
}
