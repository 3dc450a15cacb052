package pipeline

import (
	"context"
	"log/slog"
)

// Step is one stage of a snapshot job. Steps run in sequence, each
// receiving the job as accumulated by the steps before it.
type Step interface {
	// Do executes the step. A returned error fails the step; partial
	// results the step produced should stay on the job.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in the order they were added.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps executing steps after one fails. When
	// false, the pipeline stops on the first error.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps the pipeline running after a step fails.
// Failed steps are logged and recorded on the job. The default is to
// stop, because a failed load leaves nothing for later steps to work
// with.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline. Add steps with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence over the job.
//
// Cancellation is checked between steps; steps handle their own
// timeouts internally. Returns the first step error unless
// continueOnError is set, in which case errors are recorded on the
// job and execution continues.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"thread", job.ThreadID,
				"reason", ctx.Err(),
			)
			job.TimedOut = true
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"thread", job.ThreadID,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"thread", job.ThreadID,
				"error", err,
			)

			job.Err = err
			job.ErrorMessage = err.Error()

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"thread", job.ThreadID,
			)
		}

		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
