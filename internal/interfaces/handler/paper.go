package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"astrodash/internal/application/apperr"
	"astrodash/internal/application/service"
)

type paperTradeRequest struct {
	UserID string `json:"user_id"`
	service.OpenRequest
}

// PaperHandler opens and closes manual paper positions.
type PaperHandler struct {
	Ledger *service.PositionLedger
}

func (h *PaperHandler) Register(r *gin.Engine) {
	g := r.Group("/api/paper/trade")
	g.POST("", h.open)
	g.DELETE("/:id/:index", h.close)
}

func (h *PaperHandler) open(c *gin.Context) {
	var req paperTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, fmt.Errorf("decode body: %w: %v", apperr.ErrInvalidArgument, err))
		return
	}
	pos, err := h.Ledger.Open(c.Request.Context(), req.UserID, req.OpenRequest)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "position": pos})
}

func (h *PaperHandler) close(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		Fail(c, fmt.Errorf("index %q: %w", c.Param("index"), apperr.ErrInvalidArgument))
		return
	}
	removed, err := h.Ledger.Close(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
}
