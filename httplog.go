package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// statusWriter proxies http.ResponseWriter and stores the request's status
// and response length.
type statusWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (length int, err error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	length, err = w.ResponseWriter.Write(b)
	w.length += length
	return
}

// httpLog calls ServeHTTP with a custom responsewriter that stores the
// request's status and length so we can log it.
func httpLog(logger zerolog.Logger, handle http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		writer := statusWriter{w, 0, 0}
		handle.ServeHTTP(&writer, request)
		latency := time.Since(start)

		logger.Info().
			Str("remote", request.RemoteAddr).
			Str("method", request.Method).
			Str("url", request.URL.String()).
			Str("proto", request.Proto).
			Int("status", writer.status).
			Int("length", writer.length).
			Str("useragent", request.Header.Get("User-Agent")).
			Int64("latency_ms", latency.Milliseconds()).
			Msg("request")
	}
}
