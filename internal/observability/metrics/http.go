package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Transport wraps an http.RoundTripper with explorer request metrics.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !enabled {
		return next
	}
	return &instrumentedTransport{next: next}
}

type instrumentedTransport struct {
	next http.RoundTripper
}

// RoundTrip records the request count and latency.
func (t *instrumentedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	action := actionLabel(r)

	resp, err := t.next.RoundTrip(r)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	explorerRequestsTotal.WithLabelValues(r.Method, action, status).Inc()
	explorerDuration.WithLabelValues(r.Method, action).Observe(time.Since(start).Seconds())

	return resp, err
}

// actionLabel uses the explorer "action" parameter, falling back to a
// normalized path to keep cardinality low.
func actionLabel(r *http.Request) string {
	if action := r.URL.Query().Get("action"); action != "" {
		return action
	}
	return normalizePath(r.URL.Path)
}

// normalizePath converts dynamic path segments to placeholders. For example:
//
//	/api/v2/contracts/0x1234.../verify -> /api/v2/contracts/{id}/verify
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isLikelyID(part) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// isLikelyID returns true if segment looks like an identifier
func isLikelyID(segment string) bool {
	// Addresses and hashes
	if strings.HasPrefix(segment, "0x") && len(segment) >= 42 && isHex(segment[2:]) {
		return true
	}
	// Verification GUIDs and UUIDs
	if len(segment) >= 32 && (isHex(segment) || strings.Count(segment, "-") >= 4) {
		return true
	}
	// Pure numbers (chain IDs)
	return isNumeric(segment)
}

// isHex returns true if string is hexadecimal (supports both upper and lowercase)
func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// isNumeric returns true if string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
