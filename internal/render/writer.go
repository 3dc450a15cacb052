package render

import (
	"io"

	"github.com/yomite/threadsnap/internal/model"
)

// Writer outputs thread pages in one format.
type Writer interface {
	// WritePage outputs a single thread page. It returns the number of
	// bytes written and any error encountered.
	WritePage(page *model.ThreadPage) (int, error)

	// WriteThread outputs a whole thread walk, pages in order.
	WriteThread(pages []*model.ThreadPage) (int, error)
}

// MultiWriter writes to multiple Writers, for outputting to the
// terminal and a file at the same time.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePage outputs the page to all configured Writers. It returns the
// total bytes written and stops on the first error.
func (m *MultiWriter) WritePage(page *model.ThreadPage) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WritePage(page)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteThread outputs the thread to all configured Writers.
func (m *MultiWriter) WriteThread(pages []*model.ThreadPage) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteThread(pages)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination for writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
