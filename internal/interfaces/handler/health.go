package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"astrodash/internal/application/usecase/broadcast"
	"astrodash/internal/infrastructure/metrics"
)

type HealthHandler struct {
	Backend string
	Hub     *broadcast.Hub
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (h *HealthHandler) health(c *gin.Context) {
	body := gin.H{"status": "ok", "backend": h.Backend}
	if h.Hub != nil {
		body["viewers"] = h.Hub.Len()
		body["broadcast"] = h.Hub.State().String()
	}
	c.JSON(http.StatusOK, body)
}
