// Package logging provides structured logging for outbound HTTP requests.
package logging

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport returns an http.RoundTripper that logs each request using
// structured logging:
// - method: HTTP method
// - host, path: request target (the query is never logged, it carries API keys)
// - action: explorer API action
// - status: response status code
// - bytes: response content length, -1 when unknown
// - duration: round trip duration
//
// Successful requests log at debug level; transport errors and HTTP error
// statuses log at warn.
func Transport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		return next
	}
	return &loggingTransport{next: next, logger: logger}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(r)

	attrs := []any{
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
		"action", r.URL.Query().Get("action"),
		"duration", time.Since(start).String(),
	}

	if err != nil {
		t.logger.WarnContext(r.Context(), "request failed", append(attrs, "error", err.Error())...)
		return resp, err
	}

	attrs = append(attrs, "status", resp.StatusCode, "bytes", resp.ContentLength)
	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	t.logger.Log(r.Context(), level, "request", attrs...)

	return resp, err
}
