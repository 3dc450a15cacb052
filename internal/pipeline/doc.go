// Package pipeline orchestrates thread snapshot jobs.
//
// A Pipeline runs an ordered list of Steps over a Job, one job per
// thread: load the pages over the network, archive them, optionally
// export a Markdown document. Steps share state through the Job and
// failures are recorded on it, so a batch can keep partial results.
//
// BatchProcessor fans jobs out over a bounded number of goroutines
// using errgroup, one fresh pipeline per thread via a factory.
package pipeline
