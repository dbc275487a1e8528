package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
)

// TracerName is the instrumentation scope of step spans
const TracerName = "herding.operation"

// RunnerOptions configures a Runner. Zero values fall back to defaults.
type RunnerOptions struct {
	Retry   RetryConfig
	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
}

// Runner executes steps in order
type Runner struct {
	retry   RetryConfig
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewRunner creates a runner
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = NewRetryConfig()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		retry:   opts.Retry,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Run executes steps sequentially and stops at the first failure. The
// results cover every step; steps after a failure are skipped. The
// returned error is the failed step's OperationError.
func (r *Runner) Run(ctx context.Context, steps ...Step) ([]StepResult, error) {
	results := make([]StepResult, len(steps))
	for i, s := range steps {
		results[i] = StepResult{ID: s.ID, Name: s.Name, Status: StepStatusPending}
	}

	runStart := time.Now()
	r.logger.InfoContext(ctx, "run_start", slog.Int("steps", len(steps)))

	for i, s := range steps {
		if s.Run == nil {
			err := NewValidationError(s.ID, "step has no run function")
			results[i].Status = StepStatusFailed
			results[i].Error = err
			r.skipRemaining(ctx, results, i+1, s.ID)
			return results, err
		}

		res, err := r.execute(ctx, s)
		results[i] = res
		if err != nil {
			r.skipRemaining(ctx, results, i+1, s.ID)
			r.logger.ErrorContext(ctx, "run_failed",
				slog.String("step", s.ID),
				slog.Duration("duration", time.Since(runStart)),
				slog.String("error", err.Error()))
			return results, err
		}
	}

	r.logger.InfoContext(ctx, "run_complete",
		slog.Int("steps", len(steps)),
		slog.Duration("duration", time.Since(runStart)))
	return results, nil
}

// execute runs one step with retries inside a span
func (r *Runner) execute(ctx context.Context, s Step) (StepResult, error) {
	res := StepResult{ID: s.ID, Name: s.Name}

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("step.%s", s.ID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", s.ID),
			attribute.String("step.name", s.Name),
		),
	)
	defer span.End()

	r.logger.InfoContext(ctx, "step_start", slog.String("step", s.ID), slog.String("name", s.Name))
	start := time.Now()

	err := Retry(ctx, r.retry, s.ID, func(ctx context.Context, attempt int) error {
		res.Attempts = attempt
		return s.Run(ctx)
	}, func(attempt int, err error) {
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("error", err.Error()),
		))
	})

	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("step.attempts", res.Attempts))

	status := StepStatusCompleted
	if err != nil {
		status = StepStatusFailed
	}
	if r.metrics != nil {
		r.metrics.StepDuration.Record(ctx, res.Duration.Seconds(),
			metric.WithAttributes(
				attribute.String("step", s.ID),
				attribute.String("status", string(status)),
			))
	}

	if err != nil {
		wrapped := WrapError(err, s.ID, "step failed")
		res.Status = StepStatusFailed
		res.Error = wrapped
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.ErrorContext(ctx, "step_failed",
			slog.String("step", s.ID),
			slog.Int("attempts", res.Attempts),
			slog.Duration("duration", res.Duration),
			slog.String("error_type", string(wrapped.Type)),
			slog.String("error", err.Error()))
		return res, wrapped
	}

	res.Status = StepStatusCompleted
	span.SetStatus(codes.Ok, "")
	r.logger.InfoContext(ctx, "step_complete",
		slog.String("step", s.ID),
		slog.Int("attempts", res.Attempts),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) skipRemaining(ctx context.Context, results []StepResult, from int, failed string) {
	for i := from; i < len(results); i++ {
		results[i].Status = StepStatusSkipped
		r.logger.WarnContext(ctx, "step_skipped",
			slog.String("step", results[i].ID),
			slog.String("after", failed))
	}
}
