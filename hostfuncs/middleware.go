package hostfuncs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// Middleware wraps an OperationHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next OperationHandler) OperationHandler {
//	    return func(ctx context.Context, input []byte) ([]byte, error) {
//	        start := time.Now()
//	        defer func() { slog.Debug("took", "d", time.Since(start)) }()
//	        return next(ctx, input)
//	    }
//	}
type Middleware func(next OperationHandler) OperationHandler

// PanicRecoveryMiddleware returns a middleware that turns a handler panic into
// a *PanicError, which the dispatcher reports as a read failure status instead
// of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, input []byte) (out []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					out = nil
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, input)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every dispatched call.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			attrs := []any{"input_len", len(input)}
			if hc, ok := ctx.(HostContext); ok {
				attrs = append(attrs, "operation", hc.OperationName(), "call_id", hc.CallID())
			}

			start := time.Now()
			out, err := next(ctx, input)
			attrs = append(attrs, "duration", time.Since(start))
			if err != nil {
				logger.WarnContext(ctx, "extension call failed", append(attrs, "error", err)...)
				return out, err
			}
			logger.DebugContext(ctx, "extension call completed", append(attrs, "output_len", len(out))...)
			return out, nil
		}
	}
}

// RateLimitMiddleware returns a middleware that rejects calls exceeding
// limiter. Rejected calls fail with the read failure status of the call's
// protocol version and never reach the data source.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			if limiter.Allow() {
				return next(ctx, input)
			}
			v := entities.DefaultProtocol
			if hc, ok := ctx.(HostContext); ok {
				v = hc.Version()
			}
			return nil, &domainerrors.StatusError{Err: ErrRateLimited, Status: v.ReadFailureStatus()}
		}
	}
}

// TimeoutMiddleware returns a middleware that bounds each call by d.
// The handler sees a context that is cancelled after d.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			if d <= 0 {
				return next(ctx, input)
			}
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			if hc, ok := ctx.(HostContext); ok {
				return next(&timeoutContext{HostContext: hc, deadlineCtx: tctx}, input)
			}
			return next(tctx, input)
		}
	}
}

// timeoutContext keeps the HostContext accessors while using the deadline of
// a derived context.
type timeoutContext struct {
	HostContext
	deadlineCtx context.Context
}

func (c *timeoutContext) Deadline() (time.Time, bool) { return c.deadlineCtx.Deadline() }
func (c *timeoutContext) Done() <-chan struct{}       { return c.deadlineCtx.Done() }
func (c *timeoutContext) Err() error                  { return c.deadlineCtx.Err() }
