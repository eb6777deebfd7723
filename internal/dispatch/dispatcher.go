package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/forge/composer/pkg/logger"
)

// RetryPolicy bounds Dispatch's retry behavior: the total attempt count and
// the exponential backoff base/cap between attempts.
type RetryPolicy struct {
	AttemptLimit int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// DefaultRetryPolicy is the policy used when a Dispatcher is built without
// an explicit one: up to 3 attempts, 500ms base, 5s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{AttemptLimit: 3, BaseBackoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// Dispatcher forwards DispatchRecords through a configured transport,
// retrying transient failures with bounded exponential backoff per its
// RetryPolicy. Retries are skipped for FailureUnauthorized since it is
// terminal.
type Dispatcher struct {
	transport DispatchTransport
	policy    RetryPolicy
}

// NewDispatcher returns a no-op dispatcher when transport is nil — callers
// treat this as "not configured" and report StatusSkipped. A zero-value
// policy (AttemptLimit <= 0) falls back to DefaultRetryPolicy.
func NewDispatcher(transport DispatchTransport, policy RetryPolicy) *Dispatcher {
	if policy.AttemptLimit <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Dispatcher{transport: transport, policy: policy}
}

// Dispatch sends record through the transport, retrying per the bounded
// backoff policy. It never returns an error: callers inspect Result.Status
// and Result.Kind, matching the API's "always 200, status reflects
// outcome" contract.
func (d *Dispatcher) Dispatch(ctx context.Context, record DispatchRecord) Result {
	if d == nil || d.transport == nil {
		return Result{Status: StatusSkipped}
	}
	return d.dispatchFrom(ctx, record, 0)
}

// dispatchFrom continues the dispatcher's retry budget starting after
// attemptsUsed attempts already made by the caller outside this method
// (DispatchAsync's synchronous first try). When attemptsUsed is 0 this is
// Dispatch's own first attempt and runs immediately; otherwise it first
// waits out the backoff delay that would have preceded the next attempt,
// so the overall attempt count and delay schedule match a single
// uninterrupted Dispatch call regardless of where the sequence resumes.
func (d *Dispatcher) dispatchFrom(ctx context.Context, record DispatchRecord, attemptsUsed int) Result {
	remaining := d.policy.AttemptLimit - attemptsUsed
	if remaining <= 0 {
		return Result{Status: StatusFailed, Attempts: attemptsUsed, Kind: FailureUnreachable}
	}
	log := logger.FromContext(ctx)

	backoff := retry.NewExponential(d.policy.BaseBackoff)
	backoff = retry.WithCappedDuration(d.policy.MaxBackoff, backoff)

	if attemptsUsed > 0 {
		delay, _ := backoff.Next()
		select {
		case <-ctx.Done():
			return Result{Status: StatusFailed, Attempts: attemptsUsed, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	backoff = retry.WithMaxRetries(uint64(remaining-1), backoff)

	attempts := attemptsUsed
	var lastKind FailureKind
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		sendErr := d.transport.Send(ctx, record)
		if sendErr == nil {
			return nil
		}
		var terr *TransportError
		if errors.As(sendErr, &terr) {
			lastKind = terr.Kind
			if terr.Kind == FailureUnauthorized {
				return terr // not wrapped as RetryableError: terminal
			}
			log.With("correlation_id", record.CorrelationID, "attempt", attempts).
				Warn("dispatch attempt failed, will retry")
			return retry.RetryableError(terr)
		}
		lastKind = FailureUnreachable
		return retry.RetryableError(sendErr)
	})

	if err == nil {
		return Result{Status: StatusDispatched, Attempts: attempts}
	}
	return Result{Status: StatusFailed, Attempts: attempts, Kind: lastKind, Err: err}
}

// DispatchAsync performs only the first attempt synchronously, bounded by
// attemptTimeout, and reports that attempt's outcome. If the first attempt
// fails with a non-terminal kind, the remaining attempts of the same
// RetryPolicy.AttemptLimit budget are detached into a background goroutine — continuing the backoff
// schedule from where the synchronous attempt left off, never restarting
// it — so the caller returns after at most one attempt's timeout while the
// total attempt count across both halves still never exceeds the
// dispatcher's RetryPolicy.AttemptLimit. The background outcome is logged,
// standing in for the dispatch log file a persistent deployment would
// maintain.
func (d *Dispatcher) DispatchAsync(ctx context.Context, record DispatchRecord, attemptTimeout time.Duration) Result {
	if d == nil || d.transport == nil {
		return Result{Status: StatusSkipped}
	}
	log := logger.FromContext(ctx)

	firstCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	err := d.transport.Send(firstCtx, record)
	if err == nil {
		return Result{Status: StatusDispatched, Attempts: 1}
	}

	kind := FailureUnreachable
	var terr *TransportError
	if errors.As(err, &terr) {
		kind = terr.Kind
	}
	if kind != FailureUnauthorized {
		go func() {
			result := d.dispatchFrom(context.Background(), record, 1)
			log.With("correlation_id", record.CorrelationID, "status", result.Status, "attempts", result.Attempts).
				Info("background dispatch retry completed")
		}()
	}
	return Result{Status: StatusFailed, Attempts: 1, Kind: kind, Err: err}
}
