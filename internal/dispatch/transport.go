package dispatch

import "context"

// TransportError wraps a transport failure with the dispatcher's failure
// taxonomy so the retry loop can tell terminal (unauthorized) from
// transient (unreachable, malformed response) failures apart.
type TransportError struct {
	Kind FailureKind
	Err  error
}

func (e *TransportError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

func (k FailureKind) String() string { return string(k) }

// DispatchTransport forwards one DispatchRecord to an external worker.
// Implementations return *TransportError on failure so the Dispatcher can
// classify it.
type DispatchTransport interface {
	Send(ctx context.Context, record DispatchRecord) error
}
