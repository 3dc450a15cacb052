package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/yomite/threadsnap/internal/model"
)

// MarkdownWriter outputs pages in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WritePage outputs one page in Markdown format.
func (w *MarkdownWriter) WritePage(page *model.ThreadPage) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeTitle(md, page)
	w.writePageTable(md, page)
	w.writePosts(md, page)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteThread outputs a whole thread walk, one section per page.
func (w *MarkdownWriter) WriteThread(pages []*model.ThreadPage) (int, error) {
	md := markdown.NewMarkdown(w.output)

	if len(pages) == 0 {
		md.PlainText("No pages loaded.")
		return len(md.String()), md.Build()
	}

	w.writeTitle(md, pages[0])
	w.writeThreadTable(md, pages)

	for _, page := range pages {
		md.H2(fmt.Sprintf("Page %d", page.Page))
		md.PlainText("")
		w.writePosts(md, page)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeTitle writes the document heading.
func (w *MarkdownWriter) writeTitle(md *markdown.Markdown, page *model.ThreadPage) {
	if page.Title != "" {
		md.H1(page.Title)
	} else {
		md.H1("Thread " + page.ThreadID)
	}
	md.PlainText("")
}

// writePageTable writes the summary table for a single page.
func (w *MarkdownWriter) writePageTable(md *markdown.Markdown, page *model.ThreadPage) {
	continues := "no"
	if page.HasNext {
		continues = "yes"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Thread", "`" + page.ThreadID + "`"},
			{"Page", strconv.Itoa(page.Page)},
			{"Posts", strconv.Itoa(page.PostCount())},
			{"Continues", continues},
		},
	})
	md.PlainText("")
}

// writeThreadTable writes the summary table for a whole walk.
func (w *MarkdownWriter) writeThreadTable(md *markdown.Markdown, pages []*model.ThreadPage) {
	posts := 0
	for _, page := range pages {
		posts += page.PostCount()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Thread", "`" + pages[0].ThreadID + "`"},
			{"Pages", strconv.Itoa(len(pages))},
			{"Posts", strconv.Itoa(posts)},
		},
	})
	md.PlainText("")
}

// writePosts writes every post of one page as its own section.
func (w *MarkdownWriter) writePosts(md *markdown.Markdown, page *model.ThreadPage) {
	for _, post := range page.Posts {
		w.writePost(md, post)
	}
}

// writePost writes one post section: floor and author header, the
// timestamp in italics, then the flattened content.
func (w *MarkdownWriter) writePost(md *markdown.Markdown, post model.Post) {
	if post.Floor > 0 {
		md.PlainText(fmt.Sprintf("### #%d %s", post.Floor, post.Author))
	} else {
		md.PlainText("### " + post.Author)
	}
	md.PlainText("")

	if post.PostedAt != "" {
		md.PlainTextf("*%s*", post.PostedAt)
		md.PlainText("")
	}

	text := Flatten(post.Content)
	if text == "" {
		text = "(no text content)"
	}
	md.PlainText(text)
	md.PlainText("")
}

// writeFooter writes the document footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Exported by [threadsnap](https://github.com/yomite/threadsnap)*")
}
