package telegram

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/common/metrics"
)

// NewWebhookRouter builds the HTTP surface for webhook mode. The bot
// token doubles as the path secret, which is the scheme the Bot API
// documentation recommends.
func NewWebhookRouter(bot *Bot, token string, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	webhookLog := log.WithFields(map[string]interface{}{"component": "webhook"})

	router.POST("/webhook/:token", func(c *gin.Context) {
		if c.Param("token") != token {
			c.Status(http.StatusNotFound)
			return
		}

		var update Update
		if err := c.ShouldBindJSON(&update); err != nil {
			metrics.UpdatesReceived.WithLabelValues("malformed").Inc()
			webhookLog.Warn("malformed webhook update", map[string]interface{}{"error": err.Error()})
			c.Status(http.StatusBadRequest)
			return
		}

		// Ack immediately; a slow search must not make Telegram retry
		// the delivery.
		go bot.HandleUpdate(context.WithoutCancel(c.Request.Context()), update)
		c.Status(http.StatusOK)
	})

	return router
}
