package web

import (
	"net/http"
	"time"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request through log.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	l := log.Component("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				var ev *zerolog.Event
				switch {
				case status >= 500:
					ev = l.Error()
				case r.URL.Path == "/health" || r.URL.Path == "/metrics":
					ev = l.Trace()
				default:
					ev = l.Debug()
				}

				ev.Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SameOrigin rejects state-changing requests whose Origin header names
// neither this host nor one of allowed. Requests without an Origin header
// pass; browsers always send one on cross-site posts.
func SameOrigin(allowed []string) func(http.Handler) http.Handler {
	check := originChecker(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !check(r) {
					http.Error(w, "cross-origin request refused", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
