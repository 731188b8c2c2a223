// Package http wires the thin HTTP collaborator surface spec.md §1 keeps
// out of core budget: routing, auth, and session handling are stubs, but
// the one endpoint that exercises the Search Index Adapter's contract
// (the Full-text Search Endpoint) is wired for real.
package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/streemm-backend/internal/http/handlers"
)

type RouterConfig struct {
	HealthHandler *httpH.HealthHandler
	SearchHandler *httpH.SearchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.SearchHandler != nil {
			api.GET("/search/transcript", cfg.SearchHandler.SearchTranscript)
		}
	}

	return r
}
