package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/uxaudit/internal/model"
)

// Step is one stage of an audit run.
type Step interface {
	// Do performs the stage and appends its records to the report.
	// Page and probe failures are recorded in the report; an error is
	// returned only when the stage itself could not run.
	Do(ctx context.Context, report *model.AuditReport) error

	// Name identifies the step in logs and in the report.
	Name() string
}

// Pipeline runs its steps in order against one report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
	now             func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger of the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a step
// fails. Cancellation still stops the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps, keeping their order.
func (p *Pipeline) AddSteps(steps ...Step) {
	for _, step := range steps {
		p.AddStep(step)
	}
}

// Execute runs the steps in order and records each one in report.Steps.
//
// When ctx is done, either before a step starts or while it runs, the
// report is marked as timed out and the context error is returned. What
// earlier steps collected stays in the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.AuditReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("audit interrupted", "next", step.Name(), "reason", err)
			report.TimedOut = true
			return err
		}

		err := p.run(ctx, step, report)
		if err == nil {
			continue
		}
		report.Error = err.Error()

		if ctx.Err() != nil {
			report.TimedOut = true
			return err
		}
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// run executes a single step and appends its record to the report.
func (p *Pipeline) run(ctx context.Context, step Step, report *model.AuditReport) error {
	logger := p.logger.With("step", step.Name(), "site", report.Site)
	logger.Info("step started")

	start := p.now()
	err := step.Do(ctx, report)
	elapsed := p.now().Sub(start)

	rec := model.StepRecord{Name: step.Name(), Seconds: elapsed.Seconds()}
	if err != nil {
		rec.Error = err.Error()
		logger.Error("step failed", "elapsed", elapsed, "error", err)
	} else {
		logger.Debug("step finished", "elapsed", elapsed)
	}
	report.Steps = append(report.Steps, rec)

	return err
}

// StepNames returns the names of the configured steps in run order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
