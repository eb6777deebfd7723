package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forge/composer/engine/core"
	"github.com/forge/composer/internal/dispatch"
	"github.com/forge/composer/internal/manifest"
	"github.com/forge/composer/pkg/logger"
)

// composeResponse is the 2xx shape of the /compose contract, plus
// dispatch_status documenting the dispatcher's outcome.
type composeResponse struct {
	Status         string    `json:"status"`
	SystemName     string    `json:"system_name"`
	DispatchEvent  string    `json:"dispatch_event"`
	InitiatedAt    time.Time `json:"initiated_at"`
	ManifestPath   string    `json:"manifest_path"`
	DispatchStatus string    `json:"dispatch_status"`
}

// handleCompose parses and validates a manifest, builds a dispatch record,
// and hands it to the Dispatcher. It never runs the composition engine
// itself — that is the external worker's job (or the CLI's, for local
// use) — this handler's only responsibility is validating and dispatching.
func (s *Server) handleCompose(c *gin.Context) {
	var m manifest.Manifest
	if err := c.ShouldBindJSON(&m); err != nil {
		RespondProblem(c, &core.Problem{Status: http.StatusBadRequest, Title: "malformed JSON", Detail: err.Error()})
		return
	}
	m.ApplyDefaults()
	if err := manifest.Validate(&m); err != nil {
		respondManifestInvalid(c, err)
		return
	}

	lockKey := s.cfg.Compose.OutputRoot + "/" + m.SystemName
	if !s.locks.tryLock(lockKey) {
		RespondProblem(c, &core.Problem{
			Status: http.StatusServiceUnavailable,
			Title:  "composition already in progress",
			Detail: "a composition for this system_name is already running",
		})
		return
	}
	defer s.locks.unlock(lockKey)

	acquired, release := s.tryAcquireQueueSlot()
	if !acquired {
		RespondProblem(c, &core.Problem{
			Status: http.StatusServiceUnavailable,
			Title:  "dispatch queue full",
			Detail: "the dispatch work queue is at capacity, retry later",
		})
		return
	}
	defer release()

	initiatedAt := time.Now().UTC()
	manifestPath := "manifests/" + m.SystemName + ".json"
	record := dispatch.NewDispatchRecord(&m, manifestPath, initiatedAt)

	attemptTimeout := s.cfg.Dispatch.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = 5 * time.Second
	}
	result := s.dispatcher.DispatchAsync(c.Request.Context(), record, attemptTimeout)
	s.metrics.RecordDispatch(c.Request.Context(), string(result.Status))

	if result.Status == dispatch.StatusFailed {
		logger.FromContext(c.Request.Context()).
			Warn("dispatch first attempt failed", "system_name", m.SystemName, "kind", result.Kind)
	}

	// The API always reports status:"dispatched" once accepted, whatever
	// the dispatcher's own outcome — dispatch_status carries that outcome
	// separately so the caller can decide to retry.
	c.JSON(http.StatusOK, composeResponse{
		Status:         "dispatched",
		SystemName:     m.SystemName,
		DispatchEvent:  record.EventType,
		InitiatedAt:    initiatedAt,
		ManifestPath:   manifestPath,
		DispatchStatus: string(result.Status),
	})
}

func respondManifestInvalid(c *gin.Context, err error) {
	extras := map[string]any{}
	if verr, ok := err.(*manifest.ValidationError); ok {
		extras["errors"] = verr.Errors
	}
	RespondProblem(c, &core.Problem{
		Status: http.StatusUnprocessableEntity,
		Title:  "manifest invalid",
		Detail: err.Error(),
		Extras: extras,
	})
}
