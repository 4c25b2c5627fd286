package ws

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker validates the Origin header of WebSocket upgrades against an
// allow-list. "*" allows every origin.
type OriginChecker struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginChecker builds a checker from configured origins. Invalid entries
// are logged and ignored.
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			oc.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Printf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}
		oc.allowed[normalized] = struct{}{}
	}
	return oc
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Allowed reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" || oc.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, exists := oc.allowed[normalized]
	return exists
}

// CheckOrigin is a websocket.Upgrader CheckOrigin function.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	if oc.Allowed(r.Header.Get("Origin")) {
		return true
	}
	log.Printf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
