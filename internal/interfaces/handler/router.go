package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"astrodash/internal/application/container"
	"astrodash/internal/application/usecase/broadcast"
)

// NewRouter builds the engine with every route registered.
func NewRouter(c *container.Container, hub *broadcast.Hub, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	health := &HealthHandler{Backend: c.Backend().Name(), Hub: hub}
	health.Register(engine)
	users := &UserHandler{Registry: c.Registry(), Aggregator: c.Aggregator()}
	users.Register(engine)
	paper := &PaperHandler{Ledger: c.Ledger()}
	paper.Register(engine)
	stream := &StreamHandler{Hub: hub}
	stream.Register(engine)
	return engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
