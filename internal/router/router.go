package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/timboisvert/cocoscout-sub005/internal/handler"
	"github.com/timboisvert/cocoscout-sub005/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth, while the profile and logout endpoints
// require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token.
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OPERATOR", "PARTICIPANT"))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated read side: resolved form
// and instance status, and the slot grid with live hold state.  These
// power embeddable signup pages, so no JWT or role middleware applies,
// but anonymous claim traffic still passes the rate limiter installed
// globally in main.
func RegisterPublic(e *echo.Echo, s *handler.StatusHandler, cl *handler.ClaimHandler, jwtSecret string) {
	e.GET("/v1/forms/:id/status", s.FormStatus)
	e.GET("/v1/instances/:id/status", s.InstanceStatus)
	e.GET("/v1/instances/:id/slots", cl.SlotGrid)

	// The claim path accepts both signed-in users and anonymous guests,
	// so the JWT is parsed when present but never required.
	claim := e.Group("/v1", middleware.OptionalJWT(jwtSecret))
	claim.POST("/slots/:id/hold", cl.Hold)
	claim.GET("/slots/:id/hold", cl.HoldStatus)
	claim.DELETE("/slots/:id/hold", cl.ReleaseHold)
	claim.DELETE("/holds", cl.ReleaseAll)
	claim.POST("/slots/:id/claim", cl.Claim)
}

// RegisterParticipant registers endpoints that require a signed-in
// participant: cancelling an own registration.
func RegisterParticipant(e *echo.Echo, cl *handler.ClaimHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("PARTICIPANT", "OPERATOR"),
	)
	g.DELETE("/registrations/:id", cl.CancelRegistration)
}
