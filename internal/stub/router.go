package stub

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepstack/interview-client/internal/config"
)

// SetupRouter configures the stub backend's routes: the REST contract
// under /api/v1 and the socket endpoint at /ws.
func SetupRouter(cfg *config.Config, h *Handler, hub *Hub) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(RequestIDMiddleware())

	api := router.Group("/api/v1")
	api.GET("/health", h.Health)

	authed := api.Group("")
	authed.Use(RequireJWT(cfg.JWTSecret))
	{
		authed.GET("/session/:session_id", h.GetSession)
		authed.GET("/progress/:session_id", h.GetProgress)
		authed.POST("/execute", h.Execute)
		authed.POST("/save-progress", h.SaveProgress)
		authed.POST("/submit", h.Submit)
	}

	// Socket endpoint; the handshake carries the bearer token.
	ws := router.Group("/ws")
	ws.Use(RequireJWT(cfg.JWTSecret))
	{
		ws.GET("", hub.HandleWS)
	}

	return router
}
