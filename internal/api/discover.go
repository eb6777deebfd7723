package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/forge/composer/engine/core"
	"github.com/forge/composer/internal/catalog"
)

// discoverOperations enumerates every operation POST /discover accepts.
var discoverOperations = []string{
	"list_categories",
	"list_templates",
	"get_template",
	"compose_system",
	"get_pipeline_stage",
	"get_capabilities",
	"get_blueprint",
}

// pipelineStages names the broader delivery pipeline's stages; the
// composer only emits artifacts, so every stage but the first is
// described as "external" rather than actually executed.
var pipelineStages = map[string]string{
	"artifact_emission": "performed in-process by the composition engine",
	"build":              "external CI runner",
	"test":               "external CI runner",
	"deploy":             "external deployment target",
	"monitor":            "external observability stack",
	"optimize":           "external runner consulting telemetry.json",
	"scale":              "external orchestrator consulting system_state.json",
}

func (s *Server) handleDiscoverGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"operations":      discoverOperations,
		"catalog_version": s.catalog.Snapshot(),
	})
}

type discoverRequest struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}

func (s *Server) handleDiscoverPost(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondProblem(c, &core.Problem{Status: http.StatusBadRequest, Title: "malformed JSON", Detail: err.Error()})
		return
	}
	switch req.Operation {
	case "list_categories":
		s.discoverListCategories(c)
	case "list_templates":
		s.discoverListTemplates(c, req.Params)
	case "get_template":
		s.discoverGetTemplate(c, req.Params)
	case "compose_system":
		s.discoverComposeSystem(c, req.Params)
	case "get_pipeline_stage":
		s.discoverGetPipelineStage(c, req.Params)
	case "get_capabilities":
		s.discoverGetCapabilities(c)
	case "get_blueprint":
		s.discoverGetBlueprint(c, req.Params)
	default:
		RespondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Title:  "unknown operation",
			Detail: fmt.Sprintf("operation %q is not recognized", req.Operation),
		})
	}
}

func requireParam(c *gin.Context, params map[string]any, name string) (string, bool) {
	raw, ok := params[name]
	if !ok {
		RespondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Title:  "missing params",
			Detail: fmt.Sprintf("operation requires params.%s", name),
		})
		return "", false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		RespondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Title:  "missing params",
			Detail: fmt.Sprintf("params.%s must be a non-empty string", name),
		})
		return "", false
	}
	return value, true
}

func (s *Server) discoverListCategories(c *gin.Context) {
	counts := s.catalog.Categories()
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (s *Server) discoverListTemplates(c *gin.Context, params map[string]any) {
	categoryStr, ok := requireParam(c, params, "category")
	if !ok {
		return
	}
	category, ok := catalog.ParseCategory(categoryStr)
	if !ok {
		RespondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Title:  "missing params",
			Detail: fmt.Sprintf("params.category %q is not a known category", categoryStr),
		})
		return
	}
	descriptors := s.catalog.TemplatesIn(category)
	slugs := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		slugs = append(slugs, d.Slug)
	}
	sort.Strings(slugs)
	c.JSON(http.StatusOK, gin.H{"category": categoryStr, "templates": slugs})
}

func (s *Server) discoverGetTemplate(c *gin.Context, params map[string]any) {
	templateID, ok := requireParam(c, params, "template_id")
	if !ok {
		return
	}
	for _, category := range catalog.AllCategories() {
		if d, found := s.catalog.Resolve(category, templateID); found {
			c.JSON(http.StatusOK, gin.H{
				"category":     string(d.Category),
				"slug":         d.Slug,
				"variables":    d.Variables,
				"outputs":      d.Outputs,
				"dependencies": d.Dependencies,
			})
			return
		}
	}
	RespondProblem(c, &core.Problem{
		Status: http.StatusBadRequest,
		Title:  "missing params",
		Detail: fmt.Sprintf("no template found with id %q", templateID),
	})
}

func (s *Server) discoverComposeSystem(c *gin.Context, params map[string]any) {
	systemName, ok := requireParam(c, params, "system_name")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"system_name": systemName,
		"message":     "submit the full manifest to POST /compose to scaffold this system",
	})
}

func (s *Server) discoverGetPipelineStage(c *gin.Context, params map[string]any) {
	stage, ok := requireParam(c, params, "stage")
	if !ok {
		return
	}
	owner, known := pipelineStages[stage]
	if !known {
		RespondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Title:  "missing params",
			Detail: fmt.Sprintf("params.stage %q is not a recognized pipeline stage", stage),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage, "owner": owner})
}

func (s *Server) discoverGetCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, capabilitiesSummary(s.catalog))
}

func (s *Server) discoverGetBlueprint(c *gin.Context, params map[string]any) {
	name, ok := requireParam(c, params, "blueprint_name")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blueprint_name": name,
		"message":        "blueprint bodies are served by the external agent runtime registry",
	})
}

// capabilitiesSummary is the payload of the get_capabilities discovery
// operation.
func capabilitiesSummary(cat *catalog.Catalog) gin.H {
	counts := cat.Categories()
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return gin.H{
		"categories":        out,
		"operations":        discoverOperations,
		"compose_endpoint":  "/compose",
		"discover_endpoint": "/discover",
	}
}
