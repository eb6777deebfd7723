package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/dispatch"
	"github.com/forge/composer/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T, apiKey string, dispatcher *dispatch.Dispatcher) (*Server, *gin.Engine) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "backend", "fastapi")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte(`
slug: fastapi
category: backend
outputs: []
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("# app"), 0o644))

	cat, err := catalog.Load(context.Background(), root)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.APIKey = config.SensitiveString(apiKey)
	cfg.Compose.OutputRoot = t.TempDir()

	srv := NewServer(cfg, cat, dispatcher, nil, "test")
	r := gin.New()
	srv.RegisterRoutes(r)
	return srv, r
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	t.Run("Should always respond ok, no auth required", func(t *testing.T) {
		_, r := testServer(t, "secret", nil)
		w := doJSON(r, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBearerAuth(t *testing.T) {
	t.Run("Should reject protected routes without a valid token", func(t *testing.T) {
		_, r := testServer(t, "secret", nil)
		w := doJSON(r, http.MethodGet, "/discover", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should allow protected routes with the correct bearer token", func(t *testing.T) {
		_, r := testServer(t, "secret", nil)
		w := doJSON(r, http.MethodGet, "/discover", nil, map[string]string{"Authorization": "Bearer secret"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should skip auth entirely when no API key is configured", func(t *testing.T) {
		_, r := testServer(t, "", nil)
		w := doJSON(r, http.MethodGet, "/discover", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleDiscoverPost(t *testing.T) {
	_, r := testServer(t, "", nil)

	t.Run("Should list categories", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/discover", map[string]any{"operation": "list_categories"}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject an unknown operation", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/discover", map[string]any{"operation": "nonsense"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject list_templates missing its category param", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/discover", map[string]any{"operation": "list_templates"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should list templates in a known category", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/discover",
			map[string]any{"operation": "list_templates", "params": map[string]any{"category": "backend"}}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body["templates"], "fastapi")
	})
}

func TestHandleCompose(t *testing.T) {
	t.Run("Should reject malformed JSON", func(t *testing.T) {
		_, r := testServer(t, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/compose", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject an invalid manifest with 422 and field errors", func(t *testing.T) {
		_, r := testServer(t, "", nil)
		w := doJSON(r, http.MethodPost, "/compose", map[string]any{
			"manifest_version": "1.0",
			"system_name":      "Bad_Name",
			"org":              "acme",
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "errors")
	})

	t.Run("Should report dispatch_status skipped when no dispatcher is configured", func(t *testing.T) {
		_, r := testServer(t, "", nil)
		w := doJSON(r, http.MethodPost, "/compose", map[string]any{
			"manifest_version": "1.0",
			"system_name":      "demo-x",
			"org":              "acme",
			"components":       map[string]any{"backend": map[string]any{"template": "fastapi"}},
		}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "dispatched", body["status"])
		assert.Equal(t, "skipped", body["dispatch_status"])
	})
}

func TestHandleChat(t *testing.T) {
	_, r := testServer(t, "", nil)

	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"compose intent", "please scaffold a new system for me", "compose"},
		{"list templates intent", "show templates available", "list_templates"},
		{"health intent", "what's the current status", "health"},
		{"general intent", "tell me a joke", "general"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/chat", map[string]any{
				"model":    "composer-chat",
				"messages": []map[string]string{{"role": "user", "content": tc.message}},
			}, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "chatcmpl-"+tc.want, body["id"])
		})
	}

	t.Run("Should reject an empty messages array", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/chat", map[string]any{
			"model":    "composer-chat",
			"messages": []map[string]string{},
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
