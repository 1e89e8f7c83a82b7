package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS - middleware для настройки Cross-Origin Resource Sharing. Range and
// the content headers are exposed so archives can be read cross-origin.
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,HEAD,POST,DELETE,OPTIONS",
		AllowHeaders:  "Content-Type,Accept,Range,If-Match,If-None-Match",
		ExposeHeaders: "Content-Length,Content-Range,Accept-Ranges,ETag",
	})
}
