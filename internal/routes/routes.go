package routes

import (
	"paydesk_backend/internal/auth"
	"paydesk_backend/internal/handlers"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/middleware"
	"paydesk_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	jwtSecret string,
) {
	appHandlers.HealthHandler.RegisterRoutes(ginRouter)

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtSecret))
	{
		appHandlers.PaymentHandler.RegisterRoutes(api)
		appHandlers.WithdrawalHandler.RegisterRoutes(api)
	}

	// Регистрация WebSocket
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequirePermission(auth.PermPaymentsRead))
	{
		wsGroup.GET("/payments", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws/payments registered")
}
