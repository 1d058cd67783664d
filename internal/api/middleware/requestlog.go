package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// probePaths are polled constantly by orchestrators. A healthy probe is
// logged once; after that only failures and the first success following a
// failure are logged.
var probePaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/readyz":  {},
}

// RequestIDFromContext returns the request ID stored by RequestLog, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLog returns Echo middleware that logs requests with structured
// fields. It generates a request ID if none is provided and propagates it
// through the response header, the echo context and the request context.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	probeOK := make(map[string]bool)

	// quiet reports whether a probe result can be skipped, recording the
	// outcome either way.
	quiet := func(path string, healthy bool) bool {
		if _, ok := probePaths[path]; !ok {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		wasOK := probeOK[path]
		probeOK[path] = healthy
		return healthy && wasOK
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)
			ctx := context.WithValue(c.Request().Context(), requestIDKey{}, reqID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Request().URL.Path
			status := c.Response().Status
			_, probe := probePaths[path]
			if quiet(path, status < http.StatusBadRequest) {
				return nil
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
				if probe {
					level = slog.LevelWarn
				}
			case probe && status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			log.LogAttrs(ctx, level, "request",
				slog.String("method", c.Request().Method),
				slog.String("path", path),
				slog.String("query", c.Request().URL.RawQuery),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", reqID),
			)

			return nil
		}
	}
}
