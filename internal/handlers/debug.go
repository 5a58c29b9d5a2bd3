package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/telemetry"
)

// RegisterHealthRoutes wires the liveness endpoint. The payload surfaces the
// event publisher mode so a degraded AMQP link is visible without log access.
func RegisterHealthRoutes(router *gin.Engine, publisher rabbitmq.Publisher) {
	router.GET("/healthz", func(c *gin.Context) {
		status := gin.H{
			"status":    "ok",
			"publisher": rabbitmq.PublisherMode(publisher),
		}
		if reason := rabbitmq.PublisherNoopReason(publisher); reason != "" {
			status["publisher_reason"] = reason
		}
		c.JSON(http.StatusOK, status)
	})
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
