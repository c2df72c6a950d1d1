package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"astrodash/internal/application/usecase/broadcast"
	"astrodash/internal/infrastructure/websocket"
)

// StreamHandler attaches dashboard websocket connections to the broadcast hub.
type StreamHandler struct {
	Hub *broadcast.Hub
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/ws", h.stream)
}

func (h *StreamHandler) stream(c *gin.Context) {
	v, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		// the upgrader has already written the error response
		log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	h.Hub.Attach(v)
	defer func() {
		h.Hub.Detach(v)
		_ = v.Close()
	}()

	ctx := c.Request.Context()
	if !h.Hub.Welcome(ctx, v) {
		return
	}
	_ = v.Serve(ctx)
}
