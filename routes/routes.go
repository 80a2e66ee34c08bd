package routes

import (
	"biotwin/config"
	"biotwin/controllers"
	"biotwin/middlewares"

	"github.com/gin-gonic/gin"
)

const (
	EndPointHealth = "/health"
	EndPointChat   = "/api/chat"
)

func SetupRouter(cfg *config.Config, chat *controllers.ChatController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS(cfg.AllowedOrigins))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Logger())

	r.GET(EndPointHealth, controllers.HealthCheck)

	// Streams the reply as plain text
	r.POST(EndPointChat, chat.HandleChat)

	return r
}
