package main

import (
	"realtime_chat_service/internal/chat/router"

	"github.com/gofiber/fiber/v2"
)

// 此程式只用於 init swagger, 服務入口在 cmd/chat_service
// swag init --output ./docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil, nil)
}
