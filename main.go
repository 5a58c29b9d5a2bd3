package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/chat"
	"messaging-service/internal/clients"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	authClient := clients.NewAuthClient(cfg.AuthServiceURL)
	itemClient := clients.NewItemClient(cfg.ItemServiceURL)

	convRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	itemMessageRepo := repositories.NewItemMessageRepo(database)

	hub := ws.NewHub()
	pipeline := chat.NewIngestor(convRepo, messageRepo, itemMessageRepo, hub)

	conversationHandler := handlers.NewConversationHandler(convRepo, messageRepo, pipeline, authClient, itemClient, audit)
	itemChatHandler := handlers.NewItemChatHandler(itemMessageRepo, pipeline, audit)
	sessionHandler := ws.NewSessionHandler(hub, convRepo, pipeline, authClient)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterHealthRoutes(router, auditPublisher)
	handlers.RegisterDebugRoutes(router, audit, cfg.Environment != "production")

	authMiddleware := middleware.AuthMiddleware(authClient)
	sendLimiter := middleware.NewUserRateLimiter(cfg.SendRatePerMin, cfg.SendBurst).Middleware()

	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.POST("/conversations", authMiddleware, conversationHandler.CreateOrGet)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, sendLimiter, conversationHandler.PostMessage)
	router.POST("/conversations/:conversation_id/resolve", authMiddleware, conversationHandler.Resolve)
	router.POST("/conversations/:conversation_id/archive", authMiddleware, conversationHandler.Archive)
	router.POST("/conversations/:conversation_id/read", authMiddleware, conversationHandler.MarkRead)
	router.POST("/messages", authMiddleware, sendLimiter, conversationHandler.SendDirect)

	router.GET("/items/:item_id/messages", authMiddleware, itemChatHandler.List)
	router.POST("/items/:item_id/messages", authMiddleware, sendLimiter, itemChatHandler.Post)
	router.DELETE("/items/:item_id/messages", authMiddleware, itemChatHandler.Purge)

	router.GET("/ws", sessionHandler.Handle)

	log.Printf("messaging service listening on :%s publisher=%s", cfg.Port, rabbitmq.PublisherMode(auditPublisher))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
