package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, root, relDir, content string) {
	t.Helper()
	dir := filepath.Join(root, relDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFileName), []byte(content), 0o644))
}

func TestLoad_ValidDescriptors(t *testing.T) {
	t.Run("Should index every valid descriptor by category and address", func(t *testing.T) {
		root := t.TempDir()
		writeDescriptor(t, root, "backend/fastapi", `
slug: fastapi
category: backend
templated_files: ["**/*.py"]
outputs: ["app/main.py"]
`)
		writeDescriptor(t, root, "ai_agent/research", `
slug: research
category: ai_agent
templated_files: ["**/*.md"]
outputs: []
`)
		cat, err := Load(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, map[Category]int{CategoryBackend: 1, CategoryAIAgent: 1}, cat.Categories())
		desc, ok := cat.Resolve(CategoryBackend, "fastapi")
		require.True(t, ok)
		assert.Equal(t, "fastapi", desc.Slug)
		assert.Empty(t, cat.Warnings())
	})
}

func TestLoad_InvalidDescriptorsAreSkippedNotFatal(t *testing.T) {
	t.Run("Should warn and skip a descriptor with an unknown category", func(t *testing.T) {
		root := t.TempDir()
		writeDescriptor(t, root, "backend/fastapi", `
slug: fastapi
category: backend
outputs: []
`)
		writeDescriptor(t, root, "weird/broken", `
slug: broken
category: not-a-real-category
`)
		cat, err := Load(context.Background(), root)
		require.NoError(t, err)
		assert.Len(t, cat.Warnings(), 1)
		_, ok := cat.Resolve(Category("not-a-real-category"), "broken")
		assert.False(t, ok)
		_, ok = cat.Resolve(CategoryBackend, "fastapi")
		assert.True(t, ok)
	})

	t.Run("Should not fail startup on an empty library root", func(t *testing.T) {
		root := t.TempDir()
		cat, err := Load(context.Background(), root)
		require.NoError(t, err)
		assert.Empty(t, cat.Categories())
	})
}

func TestCatalog_ResolveMissing(t *testing.T) {
	t.Run("Should report not-found for an unresolvable address", func(t *testing.T) {
		root := t.TempDir()
		cat, err := Load(context.Background(), root)
		require.NoError(t, err)
		_, ok := cat.Resolve(CategoryBackend, "nope")
		assert.False(t, ok)
	})
}

func TestCatalog_Snapshot(t *testing.T) {
	t.Run("Should produce identical snapshots for identical descriptor sets", func(t *testing.T) {
		root1 := t.TempDir()
		root2 := t.TempDir()
		for _, root := range []string{root1, root2} {
			writeDescriptor(t, root, "backend/fastapi", `
slug: fastapi
category: backend
outputs: ["app/main.py"]
`)
		}
		cat1, err := Load(context.Background(), root1)
		require.NoError(t, err)
		cat2, err := Load(context.Background(), root2)
		require.NoError(t, err)
		assert.Equal(t, cat1.Snapshot(), cat2.Snapshot())
	})

	t.Run("Should change when the descriptor set changes", func(t *testing.T) {
		root := t.TempDir()
		writeDescriptor(t, root, "backend/fastapi", `
slug: fastapi
category: backend
outputs: ["app/main.py"]
`)
		cat1, err := Load(context.Background(), root)
		require.NoError(t, err)
		writeDescriptor(t, root, "backend/express", `
slug: express
category: backend
outputs: ["src/index.js"]
`)
		cat2, err := Load(context.Background(), root)
		require.NoError(t, err)
		assert.NotEqual(t, cat1.Snapshot(), cat2.Snapshot())
	})
}
