package middleware

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/wordloop/server/internal/observability"
)

// RequestContext attaches an observability.RequestContext to every request.
// An incoming X-Request-Id is reused; otherwise a uuid is generated.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			userID := parseUserID(c.Param("userId"))

			var reqCtx *observability.RequestContext
			if id := req.Header.Get(echo.HeaderXRequestID); id != "" {
				reqCtx = observability.NewRequestContextWithID(logger, id, c.Path(), userID)
			} else {
				reqCtx = observability.NewRequestContext(logger, c.Path(), userID)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			reqCtx.Info("request completed",
				slog.String("method", req.Method),
				slog.Int("status", c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.Duration().Milliseconds()),
			)
			return nil
		}
	}
}

func parseUserID(raw string) int32 {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0
	}
	return int32(id)
}
