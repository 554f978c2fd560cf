package router

// This file registers operator-scoped routes for managing productions,
// forms and their downstream instances.  Everything here requires a
// valid JWT with the OPERATOR role; ownership of the underlying
// production is checked again inside each handler.

import (
	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/handler"
	"github.com/timboisvert/cocoscout-sub005/internal/middleware"
)

// RegisterOperator registers OPERATOR-scoped endpoints under /v1.
func RegisterOperator(e *echo.Echo, p *handler.ProductionHandler, f *handler.FormHandler,
	ec *handler.EventChangesHandler, sc *handler.SlotChangesHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OPERATOR"),
	)

	// ---- Productions ----
	g.POST("/productions", p.Create)
	g.GET("/productions", p.List)
	g.GET("/productions/:id/forms", f.List)

	// ---- Forms ----
	g.POST("/forms", f.Create)
	g.GET("/forms/:id", f.Get)
	g.PUT("/forms/:id", f.Update)
	g.PATCH("/forms/:id", f.Update) // alias for clients that use PATCH
	g.DELETE("/forms/:id", f.Archive)

	// ---- Holdout policy ----
	g.PUT("/forms/:id/holdout", f.PutHoldout)
	g.DELETE("/forms/:id/holdout", f.DeleteHoldout)

	// ---- Event reconciliation (analyze, then apply) ----
	g.GET("/forms/:id/event-changes", ec.Analyze)
	g.POST("/forms/:id/event-changes", ec.Apply)

	// ---- Slot template changes ----
	g.POST("/forms/:id/slot-changes", sc.Apply)

	// ---- Status sweep (cron / ops) ----
	g.POST("/internal/forms/:id/sweep", f.Sweep)
}
