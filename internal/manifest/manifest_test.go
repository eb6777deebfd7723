package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() *Manifest {
	return &Manifest{
		ManifestVersion: ManifestVersion,
		SystemName:      "demo-x",
		Org:             "acme",
		Components: Components{
			Backend: &BackendSpec{Template: "fastapi"},
			AIAgents: []AIAgentSpec{
				{Template: "research"},
				{Template: "orchestrator", InstanceName: "wf"},
			},
		},
	}
}

func TestValidate_HappyPath(t *testing.T) {
	t.Run("Should accept a well-formed manifest", func(t *testing.T) {
		m := validManifest()
		m.ApplyDefaults()
		assert.NoError(t, Validate(m))
	})
}

func TestValidate_BadName(t *testing.T) {
	t.Run("Should reject an uppercase system_name", func(t *testing.T) {
		m := validManifest()
		m.SystemName = "Bad_Name"
		err := Validate(m)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		found := false
		for _, fe := range verr.Errors {
			if fe.Field == "system_name" {
				found = true
			}
		}
		assert.True(t, found, "expected a system_name field error, got %+v", verr.Errors)
	})
}

func TestValidate_UnknownBackendSlug(t *testing.T) {
	t.Run("Should reject a backend slug outside the enumerated set", func(t *testing.T) {
		m := validManifest()
		m.Components.Backend.Template = "nodejs"
		err := Validate(m)
		require.Error(t, err)
	})
}

func TestValidate_DuplicateInstanceNames(t *testing.T) {
	t.Run("Should reject two ai_agents defaulting to the same instance_name", func(t *testing.T) {
		m := validManifest()
		m.Components.AIAgents = []AIAgentSpec{
			{Template: "research"},
			{Template: "research"},
		}
		m.ApplyDefaults()
		err := Validate(m)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Errors[0].Field, "ai_agents")
	})
}

func TestAIAgentSpec_InstanceName(t *testing.T) {
	t.Run("Should default instance_name to the template slug", func(t *testing.T) {
		a := AIAgentSpec{Template: "research"}
		assert.Equal(t, "research", a.EffectiveInstanceName())
	})

	t.Run("Should keep an explicit instance_name", func(t *testing.T) {
		a := AIAgentSpec{Template: "orchestrator", InstanceName: "wf"}
		assert.Equal(t, "wf", a.EffectiveInstanceName())
	})
}
