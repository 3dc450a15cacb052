package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor snapshots multiple threads concurrently. Each thread
// gets a fresh pipeline from the factory; errgroup bounds how many
// run at once.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each job, so state
	// never leaks between threads.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of jobs running at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed jobs by input position.
	results []*Job
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs. The
// default is 3, which keeps the load on any single forum modest.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. The factory is called
// once per thread to build that thread's pipeline.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     3,
		results:         make([]*Job, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch snapshots the given threads concurrently and returns
// one job per thread in input order.
//
// Step failures are recorded on the job, not returned, so one broken
// thread never aborts the rest of the batch. The error return
// reflects batch-level problems such as cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, threadIDs []string) ([]*Job, error) {
	bp.logger.Info("starting batch",
		"total_threads", len(threadIDs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*Job, len(threadIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, threadID := range threadIDs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing thread",
				"thread", threadID,
				"index", i+1,
				"total", len(threadIDs),
			)

			job := NewJob(threadID)
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, job)

			bp.mu.Lock()
			bp.results[i] = job
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("thread failed",
					"thread", threadID,
					"error", err,
				)
				// The failure lives on the job; other threads keep
				// running.
				return nil
			}

			bp.logger.Info("thread completed",
				"thread", threadID,
				"pages", job.PageCount(),
				"posts", job.PostCount(),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch complete",
		"total_threads", len(threadIDs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback snapshots threads and calls the callback
// as each job settles, for streaming progress output. The callback
// runs on the goroutine that finished the job and must be safe for
// any shared state it touches.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	threadIDs []string,
	callback func(job *Job, index int),
) error {
	bp.logger.Info("starting batch with callback",
		"total_threads", len(threadIDs),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, threadID := range threadIDs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			job := NewJob(threadID)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, job) //nolint:errcheck // the failure is recorded on the job

			callback(job, i)

			return nil
		})
	}

	return g.Wait()
}
