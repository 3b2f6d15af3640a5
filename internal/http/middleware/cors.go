package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowedHeaders = "Authorization, Content-Type, X-Request-Id"
	corsAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsExposedHeaders = "Retry-After, X-Request-Id"
)

// OriginMatcher decides whether a browser origin may call the API.
// Entries are exact origins, "*", or a wildcard host such as
// "https://*.clinic.example" which matches any subdomain on that scheme.
type OriginMatcher struct {
	any       bool
	exact     map[string]struct{}
	wildcards []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string
	suffix string
}

// NewOriginMatcher parses an allowlist. An empty list matches nothing.
func NewOriginMatcher(origins []string) OriginMatcher {
	m := OriginMatcher{exact: map[string]struct{}{}}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://")
			m.wildcards = append(m.wildcards, wildcardOrigin{
				scheme: strings.ToLower(scheme),
				suffix: strings.ToLower(strings.TrimPrefix(host, "*")),
			})
		default:
			m.exact[strings.ToLower(origin)] = struct{}{}
		}
	}
	return m
}

// Empty reports whether no origin was configured.
func (m OriginMatcher) Empty() bool {
	return !m.any && len(m.exact) == 0 && len(m.wildcards) == 0
}

// Allows reports whether origin is on the list.
func (m OriginMatcher) Allows(origin string) bool {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if origin == "" {
		return false
	}
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	if len(m.wildcards) == 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, w := range m.wildcards {
		if u.Scheme == w.scheme && strings.HasSuffix(u.Host, w.suffix) && len(u.Host) > len(w.suffix) {
			return true
		}
	}
	return false
}

// CORS provides an allowlist-based CORS middleware for the widget.
// Allowed origins are echoed back; preflights short-circuit with 204.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	matcher := NewOriginMatcher(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			allowed := matcher.Allows(origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
				w.Header().Set("Access-Control-Expose-Headers", corsExposedHeaders)
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
