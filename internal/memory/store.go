package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/forge/composer/engine/core"
	"github.com/forge/composer/pkg/logger"
)

const (
	systemStateFile     = "system_state.json"
	decisionLogFile     = "decision_log.json"
	telemetryFile       = "telemetry.json"
	architectureMapFile = "architecture_map.json"
)

var schemaValidate = validator.New()

// Rehydrate loads all four memory files from stateDir, schema-validating
// each, and returns a consolidated Context. Missing or invalid files are
// reported as warnings, never errors — the process always returns
// success so a pipeline run works cleanly on first invocation.
func Rehydrate(ctx context.Context, stateDir string) (*Context, error) {
	log := logger.FromContext(ctx)
	out := &Context{}

	state, warn := loadSystemState(stateDir)
	out.SystemState = state
	appendWarning(&out.Warnings, warn)

	decisions, warn := loadDecisionLog(stateDir)
	out.DecisionLog = decisions
	appendWarning(&out.Warnings, warn)

	telemetry, warn := loadTelemetry(stateDir)
	out.Telemetry = telemetry
	appendWarning(&out.Warnings, warn)

	archMap, warn := loadArchitectureMap(stateDir)
	out.ArchitectureMap = archMap
	appendWarning(&out.Warnings, warn)

	if len(out.Warnings) > 0 {
		log.Warn("rehydrate completed with warnings", "state_dir", stateDir, "warnings", out.Warnings)
	}
	return out, nil
}

func appendWarning(warnings *[]string, warn string) {
	if warn != "" {
		*warnings = append(*warnings, warn)
	}
}

func loadSystemState(stateDir string) (*SystemState, string) {
	var state SystemState
	path := filepath.Join(stateDir, systemStateFile)
	exists, err := readJSONLocked(path, &state)
	if !exists {
		if err != nil {
			return nil, fmt.Sprintf("%s: %v", systemStateFile, err)
		}
		return nil, fmt.Sprintf("%s: not found", systemStateFile)
	}
	if err != nil {
		return nil, fmt.Sprintf("%s: %v", systemStateFile, err)
	}
	if err := schemaValidate.Struct(&state); err != nil {
		return nil, fmt.Sprintf("%s: %v", systemStateFile, err)
	}
	return &state, ""
}

func loadDecisionLog(stateDir string) ([]DecisionEntry, string) {
	var entries []DecisionEntry
	path := filepath.Join(stateDir, decisionLogFile)
	exists, err := readJSONLocked(path, &entries)
	if !exists {
		if err != nil {
			return nil, fmt.Sprintf("%s: %v", decisionLogFile, err)
		}
		return nil, fmt.Sprintf("%s: not found", decisionLogFile)
	}
	if err != nil {
		return nil, fmt.Sprintf("%s: %v", decisionLogFile, err)
	}
	for i := range entries {
		if err := schemaValidate.Struct(&entries[i]); err != nil {
			return nil, fmt.Sprintf("%s: entry %d: %v", decisionLogFile, i, err)
		}
	}
	return entries, ""
}

func loadTelemetry(stateDir string) ([]TelemetryEvent, string) {
	var events []TelemetryEvent
	path := filepath.Join(stateDir, telemetryFile)
	exists, err := readJSONLocked(path, &events)
	if !exists {
		if err != nil {
			return nil, fmt.Sprintf("%s: %v", telemetryFile, err)
		}
		return nil, fmt.Sprintf("%s: not found", telemetryFile)
	}
	if err != nil {
		return nil, fmt.Sprintf("%s: %v", telemetryFile, err)
	}
	for i := range events {
		if err := schemaValidate.Struct(&events[i]); err != nil {
			return nil, fmt.Sprintf("%s: entry %d: %v", telemetryFile, i, err)
		}
	}
	return events, ""
}

func loadArchitectureMap(stateDir string) (*ArchitectureMap, string) {
	var am ArchitectureMap
	path := filepath.Join(stateDir, architectureMapFile)
	exists, err := readJSONLocked(path, &am)
	if !exists {
		if err != nil {
			return nil, fmt.Sprintf("%s: %v", architectureMapFile, err)
		}
		return nil, fmt.Sprintf("%s: not found", architectureMapFile)
	}
	if err != nil {
		return nil, fmt.Sprintf("%s: %v", architectureMapFile, err)
	}
	return &am, ""
}

// StatePatch names the fields WriteState may update on an existing (or
// freshly defaulted) SystemState.
type StatePatch struct {
	SystemName      string
	Phase           *Phase
	LastAction      *string
	HealthScore     *int
	ComponentStatus map[string]ComponentStatus
}

// WriteState reads the current system_state.json (or constructs a
// planning-phase default), applies patch, validates, and writes it back.
func WriteState(_ context.Context, stateDir string, patch StatePatch) (*SystemState, error) {
	var state SystemState
	path := filepath.Join(stateDir, systemStateFile)
	exists, err := readJSONLocked(path, &state)
	if err != nil {
		return nil, fmt.Errorf("read existing system state: %w", err)
	}
	if !exists {
		state = SystemState{
			SystemName:       patch.SystemName,
			Phase:            PhasePlanning,
			ComponentsStatus: map[string]ComponentStatus{},
		}
	}
	if patch.Phase != nil {
		state.Phase = *patch.Phase
	}
	if patch.LastAction != nil {
		state.LastAction = *patch.LastAction
		state.LastActionAt = time.Now().UTC()
	}
	if patch.HealthScore != nil {
		state.HealthScore = *patch.HealthScore
	}
	if state.ComponentsStatus == nil {
		state.ComponentsStatus = map[string]ComponentStatus{}
	}
	for k, v := range patch.ComponentStatus {
		state.ComponentsStatus[k] = v
	}
	if err := schemaValidate.Struct(&state); err != nil {
		return nil, fmt.Errorf("invalid system state after patch: %w", err)
	}
	if err := writeJSONAtomic(path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// AppendDecision appends entry (assigning a fresh ID and UTC timestamp)
// to decision_log.json.
func AppendDecision(_ context.Context, stateDir string, entry DecisionEntry) (*DecisionEntry, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate decision id: %w", err)
	}
	entry.ID = id.String()
	entry.Timestamp = time.Now().UTC()
	if err := schemaValidate.Struct(&entry); err != nil {
		return nil, fmt.Errorf("invalid decision entry: %w", err)
	}

	path := filepath.Join(stateDir, decisionLogFile)
	var entries []DecisionEntry
	if _, err := readJSONLocked(path, &entries); err != nil {
		return nil, fmt.Errorf("read existing decision log: %w", err)
	}
	entries = append(entries, entry)
	if err := writeJSONAtomic(path, entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AppendTelemetry appends event (assigning a fresh ID and UTC timestamp)
// to telemetry.json.
func AppendTelemetry(_ context.Context, stateDir string, event TelemetryEvent) (*TelemetryEvent, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate telemetry id: %w", err)
	}
	event.ID = id.String()
	event.Timestamp = time.Now().UTC()
	if err := schemaValidate.Struct(&event); err != nil {
		return nil, fmt.Errorf("invalid telemetry event: %w", err)
	}

	path := filepath.Join(stateDir, telemetryFile)
	var events []TelemetryEvent
	if _, err := readJSONLocked(path, &events); err != nil {
		return nil, fmt.Errorf("read existing telemetry: %w", err)
	}
	events = append(events, event)
	if err := writeJSONAtomic(path, events); err != nil {
		return nil, err
	}
	return &event, nil
}
