package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every control-plane endpoint onto r, guarding all
// but /health and the metrics endpoint behind the bearer-auth middleware —
// health stays reachable for liveness probes, metrics for scrapers.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)

	path := s.cfg.Monitoring.Path
	if path == "" {
		path = "/metrics"
	}
	r.GET(path, gin.WrapH(s.metrics.ExporterHandler()))

	protected := r.Group("/")
	protected.Use(bearerAuth(string(s.cfg.Server.APIKey.Value())))
	{
		protected.GET("/discover", s.handleDiscoverGet)
		protected.POST("/discover", s.handleDiscoverPost)
		protected.POST("/compose", s.handleCompose)
		protected.POST("/chat", s.handleChat)
	}
}
