package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/indicatord/internal/logging"
)

// quietPaths are polled by supervisors and dashboards and log at debug.
var quietPaths = map[string]bool{
	"/api/health":    true,
	"/api/indicator": true,
}

// HTTPLoggingMiddleware logs one line per request once the handler returns.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	u := ctx.URL()
	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", u.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if u.RawQuery != "" {
		attrs = append(attrs, slog.String("query", u.RawQuery))
	}

	logging.GetLogger("http").LogAttrs(ctx.Context(), requestLevel(ctx.Method(), u.Path, status), "HTTP request completed", attrs...)
}

func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == "OPTIONS", quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
