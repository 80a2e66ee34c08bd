package main

import (
	"biotwin/config"
	"biotwin/controllers"
	"biotwin/routes"
	"biotwin/services"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	log.Info("Starting the biomarker twin service...")

	// Clients are built once and shared read-only by every request
	openaiClient := services.NewOpenAIClient(cfg)
	biomarkers := services.NewBiomarkerClient(cfg)
	orchestrator := services.NewOrchestrator(cfg, openaiClient, biomarkers)

	router := routes.SetupRouter(cfg, controllers.NewChatController(orchestrator))

	log.WithFields(log.Fields{
		"port":           cfg.Port,
		"function_model": cfg.OpenAIFunctionModel,
		"chat_model":     cfg.OpenAIChatModel,
		"origins":        cfg.AllowedOrigins,
	}).Info("server.start")

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
