package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/mkravets/bookpress/internal/config"
	"github.com/mkravets/bookpress/internal/pkg/signature"
	"github.com/mkravets/bookpress/internal/server/http/handlers"
	"github.com/mkravets/bookpress/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.Facade, providerVerifier *signature.ProviderVerifier, podVerifier *signature.SharedSecretVerifier, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	webhookHandler := handlers.NewWebhookHandler(facade, providerVerifier, podVerifier, logger)
	orderHandler := handlers.NewOrderHandler(facade)
	downloadHandler := handlers.NewDownloadHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)

	webhooks := engine.Group("/webhooks")
	webhooks.POST("/payment", webhookHandler.Payment)
	webhooks.POST("/print", webhookHandler.Print)

	api := engine.Group("/api")
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:number", orderHandler.Status)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.AdminToken))
	admin.POST("/orders/:number/refund", adminHandler.Refund)

	engine.GET("/download/:token", downloadHandler.Get)

	return engine
}
