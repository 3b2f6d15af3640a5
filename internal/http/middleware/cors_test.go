package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestOriginMatcher(t *testing.T) {
	m := NewOriginMatcher([]string{" https://widget.example/ ", "https://*.clinic.example"})

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://widget.example", true},
		{"HTTPS://Widget.Example", true},
		{"https://north.clinic.example", true},
		{"https://a.b.clinic.example", true},
		{"https://clinic.example", false},
		{"http://north.clinic.example", false},
		{"https://evilclinic.example", false},
		{"https://other.example", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := m.Allows(tc.origin); got != tc.want {
			t.Fatalf("Allows(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
	if m.Empty() {
		t.Fatalf("expected non-empty matcher")
	}
	if !NewOriginMatcher(nil).Empty() {
		t.Fatalf("expected empty matcher for nil list")
	}
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	called := false
	mw := CORS([]string{"https://widget.example"})
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/abc/appointments/apt-1", nil)
	req.Header.Set("Origin", "https://widget.example")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://widget.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowedMethods {
		t.Fatalf("unexpected allow methods %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != corsExposedHeaders {
		t.Fatalf("unexpected expose headers %q", got)
	}
}

func TestCORSDeniesUnknownOrigin(t *testing.T) {
	mw := CORS([]string{"https://widget.example"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://unknown.example")
	rec := httptest.NewRecorder()

	mw(okHandler(nil)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	mw := CORS([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://random.example")
	rec := httptest.NewRecorder()

	mw(okHandler(nil)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://random.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	cases := []struct {
		name   string
		origin string
		status int
	}{
		{"allowed", "https://north.clinic.example", http.StatusNoContent},
		{"denied", "https://unknown.example", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			mw := CORS([]string{"https://*.clinic.example"})
			req := httptest.NewRequest(http.MethodOptions, "/v1/sessions/", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			rec := httptest.NewRecorder()

			mw(okHandler(&called)).ServeHTTP(rec, req)

			if called {
				t.Fatalf("expected handler to not be called on preflight")
			}
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
