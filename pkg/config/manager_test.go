package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Creation(t *testing.T) {
	t.Run("Should create manager with default service", func(t *testing.T) {
		manager := NewManager(nil)
		require.NotNil(t, manager)
		require.NotNil(t, manager.Service)
		assert.Equal(t, 100*time.Millisecond, manager.debounce)
		require.NoError(t, manager.Close(context.Background()))
	})

	t.Run("Should create manager with custom service", func(t *testing.T) {
		service := NewService()
		manager := NewManager(service)
		assert.Same(t, service, manager.Service)
		require.NoError(t, manager.Close(context.Background()))
	})

	t.Run("Should configure debounce duration", func(t *testing.T) {
		manager := NewManager(nil)
		defer manager.Close(context.Background())
		manager.SetDebounce(500 * time.Millisecond)
		assert.Equal(t, 500*time.Millisecond, manager.debounce)
	})
}

func TestManager_Load(t *testing.T) {
	t.Run("Should load configuration from sources", func(t *testing.T) {
		manager := NewManager(nil)
		defer manager.Close(context.Background())
		cfg, err := manager.Load(context.Background(), NewDefaultProvider())
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("Should store configuration atomically and expose it via Get", func(t *testing.T) {
		manager := NewManager(nil)
		defer manager.Close(context.Background())
		assert.Nil(t, manager.Get())
		cfg, err := manager.Load(context.Background(), NewDefaultProvider())
		require.NoError(t, err)
		assert.Same(t, cfg, manager.Get())
	})
}
