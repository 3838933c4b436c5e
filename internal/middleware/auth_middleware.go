package middleware

import (
	"net/http"
	"time"

	"followup-tracker/internal/handler"
	"followup-tracker/internal/logger"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware rejects requests without a signed-in account
func AuthMiddleware(authHandler *handler.AuthHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := authHandler.GetCurrentAccount(c); err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}

			return next(c)
		}
	}
}

// RequestLogger writes one line per request through the application logger
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			log.Infof("%s %s %d %s", req.Method, req.URL.Path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
