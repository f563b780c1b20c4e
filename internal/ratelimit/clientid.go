package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests without proxy headers.
const UnknownClient = "unknown"

// ClientID identifies the client behind a request from best-effort proxy
// headers: the first X-Forwarded-For entry, then X-Real-IP.
func ClientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}
