package revalidate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Dispatcher runs invalidations in the background after a mutation has committed.
// Outcomes are logged and counted; they never reach the mutation's caller.
type Dispatcher struct {
	trigger Trigger
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
	counter metric.Int64Counter
}

func NewDispatcher(trigger Trigger, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	counter, err := otel.Meter("github.com/cartcraft/storefront/internal/revalidate").Int64Counter(
		"storefront.revalidations",
		metric.WithDescription("Page invalidations dispatched after catalog mutations"),
	)
	if err != nil {
		logger.Warn("Revalidation counter unavailable", "error", err)
	}
	return &Dispatcher{
		trigger: trigger,
		timeout: timeout,
		logger:  logger.With("component", "revalidate"),
		counter: counter,
	}
}

// Dispatch starts the invalidation of pagePath and returns immediately.
// The work is detached from ctx cancellation but keeps its values for logging and tracing.
func (d *Dispatcher) Dispatch(ctx context.Context, pagePath, credential string) {
	bgCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			bgCtx, cancel = context.WithTimeout(bgCtx, d.timeout)
			defer cancel()
		}
		outcome := "success"
		if err := d.trigger.Revalidate(bgCtx, pagePath, credential); err != nil {
			outcome = "failure"
			d.logger.WarnContext(bgCtx, "Page invalidation failed", "path", pagePath, "error", err)
		} else {
			d.logger.DebugContext(bgCtx, "Page invalidated", "path", pagePath)
		}
		if d.counter != nil {
			d.counter.Add(bgCtx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}()
}

// Wait blocks until every dispatched invalidation has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
