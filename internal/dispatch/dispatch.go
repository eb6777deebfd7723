// Package dispatch forwards validated manifests to an external job
// worker. A Dispatcher owns a pluggable DispatchTransport — an HTTP
// webhook call or a filesystem queue drop — and retries transient
// failures with bounded exponential backoff.
package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a dispatch attempt as reported back to the
// control plane API.
type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// FailureKind enumerates the dispatcher's own failure taxonomy.
// Unauthorized is terminal — retries are skipped.
type FailureKind string

const (
	FailureUnauthorized       FailureKind = "unauthorized"
	FailureUnreachable        FailureKind = "unreachable"
	FailureMalformedResponse  FailureKind = "malformed_downstream_response"
)

// DispatchRecord is the payload handed to a transport, named after the
// "scaffold-system" event it represents.
type DispatchRecord struct {
	CorrelationID string         `json:"correlation_id"`
	EventType     string         `json:"event_type"`
	Payload       DispatchPayload `json:"payload"`
}

// DispatchPayload is the body portion of a DispatchRecord.
type DispatchPayload struct {
	Manifest     any    `json:"manifest"`
	ManifestPath string `json:"manifest_path"`
	InitiatedAt  time.Time `json:"initiated_at"`
}

// NewDispatchRecord builds a record with a fresh correlation UUID.
func NewDispatchRecord(manifest any, manifestPath string, initiatedAt time.Time) DispatchRecord {
	return DispatchRecord{
		CorrelationID: uuid.NewString(),
		EventType:     "scaffold-system",
		Payload: DispatchPayload{
			Manifest:     manifest,
			ManifestPath: manifestPath,
			InitiatedAt:  initiatedAt,
		},
	}
}

// Result is what a single dispatch attempt (and its retries) produced.
type Result struct {
	Status   Status
	Attempts int
	Kind     FailureKind
	Err      error
}
