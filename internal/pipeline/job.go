package pipeline

import "github.com/yomite/threadsnap/internal/model"

// Job carries one thread snapshot through the pipeline. Steps read
// and extend it in order; it is not safe for concurrent use, which is
// fine because one goroutine owns a job from start to finish.
type Job struct {
	// ThreadID identifies the thread being processed.
	ThreadID string

	// Pages holds the loaded pages in walk order. A failed load may
	// leave a partial walk here.
	Pages []*model.ThreadPage

	// ExportPath is the Markdown file written by the export step,
	// empty when no export ran.
	ExportPath string

	// PerformedSteps lists the names of the steps that ran.
	PerformedSteps []string

	// TimedOut marks a job whose pipeline was cancelled between
	// steps.
	TimedOut bool

	// Err and ErrorMessage record the most recent step failure.
	Err          error
	ErrorMessage string
}

// NewJob creates a job for the given thread.
func NewJob(threadID string) *Job {
	return &Job{ThreadID: threadID}
}

// Title returns the thread title taken from the first loaded page, or
// the empty string before any pages are loaded.
func (j *Job) Title() string {
	if len(j.Pages) == 0 {
		return ""
	}
	return j.Pages[0].Title
}

// PageCount returns the number of loaded pages.
func (j *Job) PageCount() int {
	return len(j.Pages)
}

// PostCount returns the number of posts across all loaded pages.
func (j *Job) PostCount() int {
	total := 0
	for _, page := range j.Pages {
		total += len(page.Posts)
	}
	return total
}
