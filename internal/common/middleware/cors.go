package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// CORS разрешает все источники в dev, вне dev только перечисленные origins.
func CORS(env string, origins ...string) fiber.Handler {
	allow := []string{"*"}
	if env != "development" && len(origins) > 0 {
		allow = origins
	}
	return cors.New(cors.Config{
		AllowOrigins: allow,
		AllowHeaders: []string{"*"},
		AllowMethods: []string{"*"},
	})
}
