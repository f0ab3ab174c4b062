package router

import (
	"github.com/labstack/echo/v4"

	"rebazar/internal/adapter/api/handler"
	"rebazar/internal/adapter/api/middleware"
)

// SetupChatRouter wires all chat endpoints. Every route resolves a principal
// first; role checks run per route on top of that.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	// Conversation lifecycle and per-role listings
	chatGroup.POST("/start", chatHandler.StartChat, authMiddleware.RequireUser)
	chatGroup.GET("/user", chatHandler.GetUserChats, authMiddleware.RequireUser)
	chatGroup.GET("/vendor", chatHandler.GetVendorChats, authMiddleware.RequireVendor)

	// Message ledger (either participant)
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.GET("/:id/messages", chatHandler.GetMessages)

	// Moderation (vendor on own chats, admin on any)
	chatGroup.POST("/:id/block", chatHandler.BlockChat, authMiddleware.RequireModerator)
	chatGroup.POST("/:id/unblock", chatHandler.UnblockChat, authMiddleware.RequireModerator)
}
