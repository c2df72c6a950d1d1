package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"astrodash/internal/application/service"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

const tradesDefaultLimit = 200

// UserHandler serves the per-tenant read API.
type UserHandler struct {
	Registry   *service.TenantRegistry
	Aggregator *service.Aggregator
}

func (h *UserHandler) Register(r *gin.Engine) {
	g := r.Group("/api/users")
	g.GET("", h.list)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/signals", h.signals)
	g.GET("/:id/positions", h.positions)
	g.GET("/:id/equity", h.equity)
	g.GET("/:id/trades", h.trades)
	g.GET("/:id/stats", h.stats)
	g.GET("/:id/latest-signal", h.latestSignal)
	g.GET("/:id/snapshot", h.snapshot)
}

func (h *UserHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.List(c.Request.Context()))
}

func (h *UserHandler) remove(c *gin.Context) {
	removed, err := h.Registry.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
}

func (h *UserHandler) signals(c *gin.Context) {
	out, err := h.Aggregator.Signals(c.Request.Context(), c.Param("id"), intQuery(c, "limit", storage.DefaultSignalLimit))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) trades(c *gin.Context) {
	out, err := h.Aggregator.Trades(c.Request.Context(), c.Param("id"), intQuery(c, "limit", tradesDefaultLimit))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) positions(c *gin.Context) {
	out, err := h.Aggregator.Positions(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) equity(c *gin.Context) {
	out, err := h.Aggregator.Equity(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) stats(c *gin.Context) {
	out, err := h.Aggregator.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// latestSignal answers {} when the tenant has no signals yet.
func (h *UserHandler) latestSignal(c *gin.Context) {
	out, err := h.Aggregator.LatestSignal(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	if out == nil {
		c.JSON(http.StatusOK, model.NoSignal)
		return
	}
	c.JSON(http.StatusOK, out)
}

// snapshot is the tenant's part of the broadcast update, for clients that poll.
func (h *UserHandler) snapshot(c *gin.Context) {
	out, err := h.Aggregator.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
