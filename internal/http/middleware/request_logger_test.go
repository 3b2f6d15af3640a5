package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/triage-concierge/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/sessions/x/appointments", nil))

	out := buf.String()
	if !strings.Contains(out, "request completed") || !strings.Contains(out, "422") {
		t.Fatalf("expected completed log with status, got %q", out)
	}
	if !strings.Contains(out, "request_id") {
		t.Fatalf("expected request id attribute, got %q", out)
	}
}
