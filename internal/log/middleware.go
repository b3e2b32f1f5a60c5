package log

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return New(DefaultConfig()).WithComponent("unknown")
}

// RequestLogger stores a request-scoped logger in the context and logs the
// completion of every request. It expects chi's RequestID middleware to run
// first.
func RequestLogger(logger *Logger) func(http.Handler) http.Handler {
	base := logger.WithComponent(ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base.With(FieldRequestID, middleware.GetReqID(r.Context()))
			ctx := context.WithValue(r.Context(), LoggerContextKey, reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.RemoteAddr).
				WithHTTPResponse(status, time.Since(start).Milliseconds())

			switch {
			case status >= 500:
				reqLogger.ErrorContext(ctx, "HTTP request completed", fields.ToSlice()...)
			case status >= 400:
				reqLogger.WarnContext(ctx, "HTTP request completed", fields.ToSlice()...)
			default:
				reqLogger.InfoContext(ctx, "HTTP request completed", fields.ToSlice()...)
			}
		})
	}
}
