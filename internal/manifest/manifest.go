// Package manifest defines the declarative input the composer accepts: a
// desired system description plus the validation rules a manifest must
// satisfy before the engine will resolve it against the library catalog.
package manifest

import (
	"time"

	"github.com/gosimple/slug"
)

const ManifestVersion = "1.0"

// Manifest is the declarative description of a system to compose. It is
// accepted over HTTP or from a file on disk, validated, and written into
// the output tree for provenance. The copy is this struct re-encoded as
// JSON after ApplyDefaults, not the original bytes: defaulted and
// slugified instance names appear in it.
type Manifest struct {
	ManifestVersion string       `json:"manifest_version" validate:"required,eq=1.0"`
	SystemName      string       `json:"system_name"      validate:"required,min=3,max=63,systemname"`
	Org             string       `json:"org"               validate:"required"`
	Description     string       `json:"description,omitempty" validate:"omitempty,max=500"`
	Components      Components   `json:"components"`
	Memory          *MemorySpec  `json:"memory,omitempty"`
	Integrations    *Integrations `json:"integrations,omitempty"`
	Metadata        *Metadata    `json:"metadata,omitempty"`
}

// Components names every template reference a manifest may carry.
type Components struct {
	Backend        *BackendSpec       `json:"backend,omitempty"`
	Frontend       *FrontendSpec      `json:"frontend,omitempty"`
	AIAgents       []AIAgentSpec      `json:"ai_agents,omitempty"`
	Business       *BusinessSpec      `json:"business,omitempty"`
	Infrastructure map[string]bool    `json:"infrastructure,omitempty"`
	Governance     map[string]bool    `json:"governance,omitempty"`
}

// BackendSpec selects the backend template.
type BackendSpec struct {
	Template string `json:"template" validate:"required,oneof=fastapi express graphql websocket ai-inference event-worker"`
}

// FrontendSpec selects the frontend template.
type FrontendSpec struct {
	Template string `json:"template" validate:"required,oneof=nextjs-pwa vite-react dashboard admin-panel saas-landing ai-console chat-ui"`
	PWA      bool   `json:"pwa,omitempty"`
}

// AIAgentSpec selects one agent instance. InstanceName defaults to
// Template when empty; instance names must be unique within a manifest.
type AIAgentSpec struct {
	Template     string `json:"template" validate:"required,oneof=research builder validator financial real-estate orchestrator content-gen social-automation"`
	InstanceName string `json:"instance_name,omitempty"`
}

// BusinessSpec selects the business-domain template.
type BusinessSpec struct {
	Template string `json:"template" validate:"required,oneof=crm lead-gen billing saas-subscription marketplace portfolio-mgmt"`
}

// MemorySpec describes the composed system's own runtime memory backend —
// distinct from this process's own internal/memory rehydration store.
type MemorySpec struct {
	Backend    string `json:"backend" validate:"required,oneof=in-memory redis postgres"`
	TTLSeconds int    `json:"ttl_seconds" validate:"gte=0"`
}

// Integrations toggles cross-cutting features of the composed system.
type Integrations struct {
	MobileAPI        bool     `json:"mobile_api,omitempty"`
	OpenAICompatible bool     `json:"openai_compatible,omitempty"`
	WebhookDispatch  bool     `json:"webhook_dispatch,omitempty"`
	CORSOrigins      []string `json:"cors_origins,omitempty"`
}

// Metadata carries optional provenance about the manifest's author.
type Metadata struct {
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// EffectiveInstanceName returns the effective instance name for an agent
// spec, defaulting to the template slug per spec §4.1 step 1.
func (a AIAgentSpec) EffectiveInstanceName() string {
	if a.InstanceName != "" {
		return a.InstanceName
	}
	return a.Template
}

// ApplyDefaults fills in defaulted fields (ai_agents instance names) and
// normalizes every instance name into a filesystem-safe slug, since
// instance names become output directory segments.
func (m *Manifest) ApplyDefaults() {
	for i := range m.Components.AIAgents {
		if m.Components.AIAgents[i].InstanceName == "" {
			m.Components.AIAgents[i].InstanceName = m.Components.AIAgents[i].Template
		}
		m.Components.AIAgents[i].InstanceName = slug.Make(m.Components.AIAgents[i].InstanceName)
	}
}
