package gateway

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/lectern-app/lectern/internal/config"
)

// NewRouter assembles the HTTP surface: room REST under /api and the
// participant WebSocket under /ws.
func NewRouter(cfg *config.Config, ctrl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("lectern_session", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", AuthMiddleware(cfg.Secret))
	{
		api.POST("/rooms", ctrl.CreateRoom)
		api.GET("/rooms", ctrl.ListRooms)
		api.GET("/rooms/:rid", ctrl.GetRoom)
	}

	ws := r.Group("/ws", AuthMiddleware(cfg.Secret))
	{
		ws.GET("/room/:rid", ctrl.Participant)
	}

	return r
}
