package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

var (
	corsHeaders = []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization}
	corsMethods = []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions}
)

// CORS allows credentialed requests from origins. Content-Disposition is
// exposed so browsers can read the exported report filename.
func CORS(origins []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     corsHeaders,
		AllowMethods:     corsMethods,
		ExposeHeaders:    []string{fiber.HeaderContentDisposition},
		AllowCredentials: true,
	})
}
