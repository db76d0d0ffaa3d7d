package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/spineclinic/intake/internal/platform/auth"
)

// Logger emits one structured line per request. Authenticated staff
// requests carry the bearer's id and role so clinic activity can be
// traced back to the assistant or doctor who made it.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			ctx := req.Context()
			if userID := auth.UserIDFromContext(ctx); userID != uuid.Nil {
				evt = evt.
					Str("user_id", userID.String()).
					Str("role", auth.RoleFromContext(ctx))
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
