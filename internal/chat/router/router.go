package router

import (
	"context"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"

	// swagger 文件
	_ "realtime_chat_service/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊 chat service 的路由
// @title Realtime Chat Service API
// @version 1.0
// @description Direct messages and live presence
// @host localhost:8082
// @BasePath /
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, messageHandler *app.MessageHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", app.ConnectCheck)
	// 切換整個程序的 debug log, 需要登入
	r.Post("/debug", middlewares.JWTMiddleware(), app.DebugLogFlag)

	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	api := r.Group("/api", middlewares.JWTMiddleware())

	messages := api.Group("/messages")
	messages.Get("/users", messageHandler.GetUsersForSidebar)
	messages.Post("/send/:id", messageHandler.SendMessage)
	messages.Get("/:id", messageHandler.GetMessages)

	users := api.Group("/users")
	users.Get("/:id/last-seen", messageHandler.GetLastSeen)
}
