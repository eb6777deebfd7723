package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		svc := NewService()
		cfg, err := svc.Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("Should apply YAML overrides on top of defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "composer.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))

		svc := NewService()
		cfg, err := svc.Load(context.Background(), NewDefaultProvider(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host) // untouched field keeps default
	})

	t.Run("Should let later providers win over earlier ones", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "composer.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))

		svc := NewService()
		cfg, err := svc.Load(
			context.Background(),
			NewDefaultProvider(),
			NewYAMLProvider(path),
			NewCLIProvider(map[string]any{"server.port": 9200}),
		)
		require.NoError(t, err)
		assert.Equal(t, 9200, cfg.Server.Port)
	})

	t.Run("Should treat a missing YAML file as an empty layer", func(t *testing.T) {
		svc := NewService()
		cfg, err := svc.Load(context.Background(), NewDefaultProvider(), NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")))
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("Should reject configuration that fails validation", func(t *testing.T) {
		svc := NewService()
		_, err := svc.Load(context.Background(), NewDefaultProvider(), NewCLIProvider(map[string]any{"server.port": 99999}))
		assert.Error(t, err)
	})
}

func TestService_GetSource(t *testing.T) {
	t.Run("Should attribute an overridden field to its provider", func(t *testing.T) {
		svc := NewService()
		_, err := svc.Load(context.Background(), NewDefaultProvider(), NewCLIProvider(map[string]any{"server.port": 9200}))
		require.NoError(t, err)
		assert.Equal(t, SourceCLI, svc.GetSource("server.port"))
	})

	t.Run("Should report SourceDefault for an untouched field", func(t *testing.T) {
		svc := NewService()
		_, err := svc.Load(context.Background(), NewDefaultProvider())
		require.NoError(t, err)
		assert.Equal(t, SourceDefault, svc.GetSource("server.host"))
	})
}
