package server

import (
	"context"
	"fmt"
	"github.com/didip/tollbooth"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDMiddleware tags every request with an id, reusing the client's
// X-Request-ID when it is a valid UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, logRequest)
}

func logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	duration := time.Since(params.TimeStamp)
	slog.Info("Request",
		slog.String("method", params.Request.Method),
		slog.String("path", params.URL.Path),
		slog.Int("status", params.StatusCode),
		slog.Int("size", params.Size),
		slog.Duration("duration", duration),
		slog.String("request_id", RequestID(params.Request.Context())),
	)
}

// RateLimitMiddleware allows max requests per second per client. A max of zero
// or less disables limiting.
func RateLimitMiddleware(max float64) func(http.Handler) http.Handler {
	if max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	lmt := tollbooth.NewLimiter(max, nil)
	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}

// RecoveryMiddleware turns a panicking handler into a 500 for that request only.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("Recovered from panic",
				slog.String("error", fmt.Sprint(rec)),
				slog.String("path", r.URL.Path),
				slog.String("request_id", RequestID(r.Context())),
				slog.String("stack", string(debug.Stack())),
			)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
