package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"biotwin/middlewares"
	"biotwin/models"
	"biotwin/services"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Replier produces the streamed answer for a conversation.
type Replier interface {
	Reply(ctx context.Context, history []models.Message) (services.TokenStream, error)
}

type ChatController struct {
	replier Replier
}

func NewChatController(replier Replier) *ChatController {
	return &ChatController{replier: replier}
}

func (cc *ChatController) HandleChat(c *gin.Context) {
	var request models.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Warnf("Invalid chat request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages are required"})
		return
	}
	if err := request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := log.WithFields(log.Fields{
		"request_id": c.GetString(middlewares.RequestIDKey),
		"messages":   len(request.Messages),
	})

	stream, err := cc.replier.Reply(c.Request.Context(), request.Messages)
	if err != nil {
		entry.WithError(err).Error("chat.reply.failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate a reply"})
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)

	chunks := 0
	for {
		tok, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			entry.WithError(err).Error("chat.stream.failed")
			break
		}
		if _, err := c.Writer.WriteString(tok); err != nil {
			entry.WithError(err).Warn("chat.stream.write")
			break
		}
		c.Writer.Flush()
		chunks++
	}

	entry.WithField("chunks", chunks).Info("chat.reply.done")
}

// HealthCheck returns service health status
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "biotwin",
	})
}
