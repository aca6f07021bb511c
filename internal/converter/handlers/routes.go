package handlers

import "github.com/gofiber/fiber/v3"

// Register mounts the health probes and the plan API on r.
func Register(r fiber.Router, plans *PlanHandler, health *Health) {
	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Get("/health/startup", health.Startup)

	r.Get("/docs", SwaggerUI)
	r.Get("/docs/openapi.yaml", SwaggerSpec)

	r.Get("/plans", plans.List)
	r.Post("/plans", plans.Create)
	r.Get("/plans/:id", plans.Get)
	r.Delete("/plans/:id", plans.Delete)
	r.Get("/plans/:id/svg", plans.SVG)
	r.Post("/plans/:id/save", plans.Save)
	r.Post("/plans/:id/undo", plans.Undo)
	r.Post("/plans/:id/redo", plans.Redo)
	r.Post("/plans/:id/vertices/:vid/move", plans.MoveVertex)
	r.Post("/plans/:id/edges/:eid/split", plans.SplitEdge)
	r.Post("/plans/:id/edges/:eid/extend", plans.ExtendEdge)
	r.Patch("/plans/:id/faces/:fid", plans.UpdateFace)
	r.Post("/plans/:id/lightslots", plans.AddLightSlot)
}
