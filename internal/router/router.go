package router

import (
	"net/http"

	"followup-tracker/internal/handler"
	"followup-tracker/internal/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes registers every route. authHandler may be nil when the
// mailbox source needs no sign-in; the API is then left open.
func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	trackerHandler *handler.TrackerHandler,
) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	if authHandler != nil {
		e.GET("/auth/logout", authHandler.LogoutHandler)
		e.GET("/auth/:provider", authHandler.BeginAuthHandler)
		e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	}

	api := e.Group("/api")
	if authHandler != nil {
		api.Use(middleware.AuthMiddleware(authHandler))
	}

	api.GET("/messages", trackerHandler.GetMessages)
	api.GET("/messages/:id", trackerHandler.GetMessage)
	api.POST("/messages/refresh", trackerHandler.Refresh)
	api.POST("/messages/:id/actions", trackerHandler.MarkAction)
	api.DELETE("/messages", trackerHandler.ClearAll)
	api.GET("/stats", trackerHandler.GetStats)
	api.GET("/filter", trackerHandler.GetFilter)
	api.PUT("/filter", trackerHandler.SetFilter)

	// Real-time state updates via Server-Sent Events (SSE)
	api.GET("/events", trackerHandler.Events)
}
