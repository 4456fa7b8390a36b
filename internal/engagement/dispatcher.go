package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one effect.
type Outcome struct {
	Effect   string        `json:"effect"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report collects the outcomes of a dispatch in effect order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Failed returns the number of effects that did not succeed.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Options bounds a dispatch.
type Options struct {
	Concurrency int
	Timeout     time.Duration
}

// Dispatcher fans an Event out to every registered effect.
type Dispatcher struct {
	effects []Effect
	opts    Options
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil tracer disables spans.
func NewDispatcher(opts Options, tracer trace.Tracer, logger *slog.Logger, effects ...Effect) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engagement")
	}
	return &Dispatcher{
		effects: effects,
		opts:    opts,
		tracer:  tracer,
		logger:  logger.With("system", "engagement"),
	}
}

// Dispatch runs every effect and waits for all of them. It never returns an
// error; failures are logged, traced and reported.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Report {
	report := Report{Outcomes: make([]Outcome, len(d.effects))}

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)

	for i, effect := range d.effects {
		g.Go(func() error {
			report.Outcomes[i] = d.run(ctx, effect, ev)
			return nil
		})
	}
	_ = g.Wait()

	if failed := report.Failed(); failed > 0 {
		d.logger.WarnContext(ctx, "side effects completed with failures",
			"document_id", ev.DocumentID,
			"failed", failed,
			"total", len(report.Outcomes),
		)
	}

	return report
}

// run applies one effect. A panic or a timeout becomes the effect's error;
// an effect that ignores its context is abandoned once the timeout fires.
func (d *Dispatcher) run(ctx context.Context, effect Effect, ev Event) Outcome {
	name := effect.Name()
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "engagement."+name,
		trace.WithAttributes(
			attribute.String("effect", name),
			attribute.String("document_id", ev.DocumentID.String()),
		),
	)
	defer span.End()

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- effect.Apply(ctx, ev)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	out := Outcome{Effect: name, Duration: time.Since(start)}

	if err != nil {
		out.Err = fmt.Errorf("%w: %s: %w", ErrSideEffectFailed, name, err)
		out.Error = out.Err.Error()
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Error)
		d.logger.ErrorContext(ctx, "side effect failed",
			"effect", name,
			"document_id", ev.DocumentID,
			"error", out.Err,
		)
		return out
	}

	d.logger.DebugContext(ctx, "side effect completed",
		"effect", name,
		"document_id", ev.DocumentID,
		"duration", out.Duration,
	)
	return out
}
