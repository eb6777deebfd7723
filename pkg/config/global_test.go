package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalAccessors(t *testing.T) {
	t.Run("Should panic when Get is called before Initialize", func(t *testing.T) {
		resetForTest()
		assert.Panics(t, func() { Get() })
	})

	t.Run("Should initialize and expose the global configuration", func(t *testing.T) {
		resetForTest()
		defer resetForTest()
		require.NoError(t, Initialize(context.Background(), nil, NewDefaultProvider()))
		assert.Equal(t, 8080, Get().Server.Port)
	})

	t.Run("Should panic when OnChange is called before Initialize", func(t *testing.T) {
		resetForTest()
		assert.Panics(t, func() { OnChange(func(*Config) {}) })
	})

	t.Run("Should notify registered watchers on Reload", func(t *testing.T) {
		resetForTest()
		defer resetForTest()
		require.NoError(t, Initialize(context.Background(), nil, NewDefaultProvider()))
		notified := false
		OnChange(func(*Config) { notified = true })
		require.NoError(t, Reload(context.Background()))
		assert.True(t, notified)
	})
}
