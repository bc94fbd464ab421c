// Package logging holds the process-wide zerolog logger and the HTTP request
// logger used by the API.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger is used by every package. It writes to stderr until Init is called.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the global logger with JSON output on stdout. Unknown
// levels fall back to info.
func Init(level, service string) {
	InitWithWriter(os.Stdout, level, service)
}

func InitWithWriter(w io.Writer, level, service string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// RequestLogger logs one structured line per request. Collection and video
// ids are replaced by placeholders.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		evt := Logger.Info()
		if status >= 500 {
			evt = Logger.Error()
		} else if status >= 400 {
			evt = Logger.Warn()
		}

		evt.
			Str("method", r.Method).
			Str("path", SanitizePath(r.URL.Path)).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Int("bytes_sent", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// SanitizePath replaces the dynamic segment after "saved-collections" with a
// placeholder, leaving the fixed sub-routes readable.
func SanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if parts[i-1] != "saved-collections" {
			continue
		}
		switch parts[i] {
		case "", "reorder", "add-video", "delete-video", "check-video", "video-counts", "clone-playlist", "with-counts":
		default:
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
