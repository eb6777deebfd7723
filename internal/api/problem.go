package api

import (
	"github.com/gin-gonic/gin"

	"github.com/forge/composer/engine/core"
)

// RespondProblem writes problem as the response body, status drawn from
// problem.Status, matching the compact error envelope the rest of the
// control plane uses: machine kind, message, offending field, no stack
// trace.
func RespondProblem(c *gin.Context, problem *core.Problem) {
	problem = core.NormalizeProblem(problem)
	c.AbortWithStatusJSON(problem.Status, core.BuildProblemBody(problem))
}
