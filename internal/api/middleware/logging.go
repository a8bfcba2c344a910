package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logger writes one access log record per request. Server errors log at
// error level, client errors at warn.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)

		status := rw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		slog.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Group("req",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.String("agent", r.UserAgent()),
			),
			slog.Group("resp",
				slog.Int("status", status),
				slog.Int("bytes", rw.BytesWritten()),
				slog.Duration("took", time.Since(began)),
			),
		)
	})
}

// Recovery turns a handler panic into a 500 with the stack logged.
// http.ErrAbortHandler is re-raised so net/http can abort the response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			id := chimw.GetReqID(r.Context())
			slog.Error("handler panicked",
				"panic", v,
				"request_id", id,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			if id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}
