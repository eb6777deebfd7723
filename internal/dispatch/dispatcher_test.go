package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	failCount int32
	kind      FailureKind
	calls     []time.Time
}

func (f *fakeTransport) Send(_ context.Context, _ DispatchRecord) error {
	f.calls = append(f.calls, time.Now())
	if int32(len(f.calls)) <= atomic.LoadInt32(&f.failCount) {
		return &TransportError{Kind: f.kind, Err: assert.AnError}
	}
	return nil
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	t.Run("Should make exactly three attempts when the first two fail transiently", func(t *testing.T) {
		ft := &fakeTransport{failCount: 2, kind: FailureUnreachable}
		d := NewDispatcher(ft, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.Dispatch(context.Background(), record)

		assert.Equal(t, StatusDispatched, result.Status)
		assert.Equal(t, 3, result.Attempts)
		a := assert.New(t)
		a.Len(ft.calls, 3)
		a.GreaterOrEqual(ft.calls[1].Sub(ft.calls[0]), 400*time.Millisecond)
		a.GreaterOrEqual(ft.calls[2].Sub(ft.calls[1]), 800*time.Millisecond)
	})
}

func TestDispatcher_UnauthorizedIsTerminal(t *testing.T) {
	t.Run("Should make exactly one attempt when unauthorized", func(t *testing.T) {
		ft := &fakeTransport{failCount: 100, kind: FailureUnauthorized}
		d := NewDispatcher(ft, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.Dispatch(context.Background(), record)

		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, FailureUnauthorized, result.Kind)
		assert.Equal(t, 1, result.Attempts)
		assert.Len(t, ft.calls, 1)
	})
}

func TestDispatcher_NotConfiguredIsSkipped(t *testing.T) {
	t.Run("Should report skipped status when no transport is configured", func(t *testing.T) {
		d := NewDispatcher(nil, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())
		result := d.Dispatch(context.Background(), record)
		assert.Equal(t, StatusSkipped, result.Status)
	})
}

func TestDispatcher_FailsAfterMaxAttempts(t *testing.T) {
	t.Run("Should report failed status after three unreachable attempts", func(t *testing.T) {
		ft := &fakeTransport{failCount: 100, kind: FailureUnreachable}
		d := NewDispatcher(ft, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.Dispatch(context.Background(), record)

		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, FailureUnreachable, result.Kind)
		assert.Equal(t, 3, result.Attempts)
	})
}

type countingTransport struct {
	mu        sync.Mutex
	failCount int
	kind      FailureKind
	calls     int
}

func (c *countingTransport) Send(_ context.Context, _ DispatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failCount {
		return &TransportError{Kind: c.kind, Err: assert.AnError}
	}
	return nil
}

func (c *countingTransport) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestDispatcher_DispatchAsync(t *testing.T) {
	t.Run("Should report success synchronously on a first-attempt success", func(t *testing.T) {
		ct := &countingTransport{}
		d := NewDispatcher(ct, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.DispatchAsync(context.Background(), record, time.Second)
		assert.Equal(t, StatusDispatched, result.Status)
		assert.Equal(t, 1, result.Attempts)
	})

	t.Run("Should report failure synchronously and retry unauthorized only once total", func(t *testing.T) {
		ct := &countingTransport{failCount: 100, kind: FailureUnauthorized}
		d := NewDispatcher(ct, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.DispatchAsync(context.Background(), record, time.Second)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, FailureUnauthorized, result.Kind)
		assert.Equal(t, 1, result.Attempts)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, ct.callCount(), "unauthorized must not trigger background retries")
	})

	t.Run("Should report the first failure synchronously then keep retrying in background", func(t *testing.T) {
		ct := &countingTransport{failCount: 2, kind: FailureUnreachable}
		d := NewDispatcher(ct, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.DispatchAsync(context.Background(), record, time.Second)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, FailureUnreachable, result.Kind)
		assert.Equal(t, 1, result.Attempts)

		require.Eventually(t, func() bool {
			return ct.callCount() == 3
		}, 3*time.Second, 20*time.Millisecond, "background retries should eventually succeed")
	})

	t.Run("Should never exceed the 3-attempt total budget across sync and background retries", func(t *testing.T) {
		ct := &countingTransport{failCount: 100, kind: FailureUnreachable}
		d := NewDispatcher(ct, DefaultRetryPolicy())
		record := NewDispatchRecord(map[string]string{"k": "v"}, "manifests/demo.json", time.Now())

		result := d.DispatchAsync(context.Background(), record, time.Second)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, 1, result.Attempts)

		require.Eventually(t, func() bool {
			return ct.callCount() == 3
		}, 3*time.Second, 20*time.Millisecond, "background retries should exhaust the remaining budget")

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, 3, ct.callCount(), "total attempts must never exceed RetryPolicy.AttemptLimit")
	})
}
