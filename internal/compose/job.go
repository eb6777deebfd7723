package compose

import (
	"time"

	"github.com/forge/composer/engine/core"
	"github.com/forge/composer/internal/manifest"
)

// Status is a ComposeJob's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job describes one composition request.
type Job struct {
	ID          core.ID
	Manifest    *manifest.Manifest
	DryRun      bool
	OutputRoot  string
	Overwrite   bool
	InitiatedAt time.Time
	Status      Status
	Err         error
}

// NewJob constructs a queued Job with a fresh ID.
func NewJob(m *manifest.Manifest, outputRoot string, dryRun, overwrite bool) (*Job, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:          id,
		Manifest:    m,
		DryRun:      dryRun,
		OutputRoot:  outputRoot,
		Overwrite:   overwrite,
		InitiatedAt: time.Now().UTC(),
		Status:      StatusQueued,
	}, nil
}
