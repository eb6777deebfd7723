// Package memory implements the disk-backed, append-only state/decision/
// telemetry store shared across pipeline stages. Every write is atomic
// (temp file + fsync + rename) and every read tolerates missing or
// invalid files by reporting warnings rather than failing.
package memory

import "time"

// Phase is a SystemState's lifecycle stage.
type Phase string

const (
	PhasePlanning Phase = "planning"
	PhaseBuilding Phase = "building"
	PhaseTesting  Phase = "testing"
	PhaseDeployed Phase = "deployed"
)

// ComponentStatus is the health of one named component within SystemState.
type ComponentStatus string

const (
	ComponentStatusPending ComponentStatus = "pending"
	ComponentStatusHealthy ComponentStatus = "healthy"
	ComponentStatusDegraded ComponentStatus = "degraded"
	ComponentStatusFailed   ComponentStatus = "failed"
)

// SystemState is the singleton object persisted to system_state.json.
type SystemState struct {
	SystemName       string                     `json:"system_name"`
	Phase            Phase                      `json:"phase"`
	ComponentsStatus map[string]ComponentStatus `json:"components_status"`
	LastAction       string                     `json:"last_action"`
	LastActionAt     time.Time                  `json:"last_action_at"`
	HealthScore      int                        `json:"health_score" validate:"gte=0,lte=100"`
	Errors           []string                   `json:"errors"`
	Warnings         []string                   `json:"warnings"`
}

// MadeBy names who authored a DecisionEntry.
type MadeBy string

const (
	MadeByHuman MadeBy = "human"
	MadeByAgent MadeBy = "agent"
)

// DecisionEntry is one append-only record in decision_log.json.
type DecisionEntry struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	DecisionType      string    `json:"decision_type" validate:"required"`
	Description       string    `json:"description"   validate:"required"`
	Rationale         string    `json:"rationale"`
	MadeBy            MadeBy    `json:"made_by" validate:"required,oneof=human agent"`
	Outcome           string    `json:"outcome,omitempty"`
	RelatedComponents []string  `json:"related_components,omitempty"`
}

// EventType enumerates the telemetry events a pipeline stage may emit.
type EventType string

const (
	EventWorkflowRun EventType = "workflow_run"
	EventTestPass    EventType = "test_pass"
	EventTestFail    EventType = "test_fail"
	EventDeploy      EventType = "deploy"
	EventError       EventType = "error"
	EventHealthCheck EventType = "health_check"
)

// TelemetryEvent is one append-only record in telemetry.json.
type TelemetryEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type" validate:"required"`
	Component string         `json:"component"  validate:"required"`
	Value     *float64       `json:"value,omitempty"`
	Unit      string         `json:"unit,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ArchitectureMap is the snapshot object persisted to
// architecture_map.json.
type ArchitectureMap struct {
	Components      []string            `json:"components"`
	DependencyGraph map[string][]string `json:"dependency_graph"`
}

// Context is the consolidated view Rehydrate returns: every memory file
// it could load, plus warnings for anything missing or invalid.
type Context struct {
	SystemState     *SystemState
	DecisionLog     []DecisionEntry
	Telemetry       []TelemetryEvent
	ArchitectureMap *ArchitectureMap
	Warnings        []string
}
