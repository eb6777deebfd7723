package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FSTransport drops each dispatch record as a JSON file into a queue
// directory, for deployments without an external webhook.
type FSTransport struct {
	queueDir string
}

func NewFSTransport(queueDir string) *FSTransport {
	return &FSTransport{queueDir: queueDir}
}

func (t *FSTransport) Send(_ context.Context, record DispatchRecord) error {
	if err := os.MkdirAll(t.queueDir, 0o755); err != nil {
		return &TransportError{Kind: FailureUnreachable, Err: fmt.Errorf("create queue dir: %w", err)}
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &TransportError{Kind: FailureMalformedResponse, Err: err}
	}
	path := filepath.Join(t.queueDir, record.CorrelationID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &TransportError{Kind: FailureUnreachable, Err: fmt.Errorf("write queue entry: %w", err)}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &TransportError{Kind: FailureUnreachable, Err: fmt.Errorf("rename queue entry: %w", err)}
	}
	return nil
}
