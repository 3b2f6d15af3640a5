package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingObserver struct {
	calls    []string
	outcomes []string
}

func (r *recordingObserver) ObserveBackendCall(call, outcome string, _ float64) {
	r.calls = append(r.calls, call)
	r.outcomes = append(r.outcomes, outcome)
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	client, err := New(Config{BaseURL: "http://backend.local/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.baseURL != "http://backend.local" {
		t.Fatalf("expected trailing slash trimmed, got %s", client.baseURL)
	}
}

func TestDoSendsJSONAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/echo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["symptoms"]})
	}))
	defer server.Close()

	obs := &recordingObserver{}
	client, _ := New(Config{BaseURL: server.URL, Observer: obs})

	var out struct {
		Echo string `json:"echo"`
	}
	if err := client.Do(context.Background(), "echo", http.MethodPost, "/api/echo", map[string]string{"symptoms": "fever"}, &out); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if out.Echo != "fever" {
		t.Fatalf("expected echo fever, got %q", out.Echo)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "ok" {
		t.Fatalf("expected one ok observation, got %v", obs.outcomes)
	}
}

func TestDoMapsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"This slot is no longer available"}`))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	client, _ := New(Config{BaseURL: server.URL, Observer: obs})
	err := client.Do(context.Background(), "book_appointment", http.MethodPost, "/api/appointments", map[string]string{}, nil)

	var re *RejectionError
	if !errors.As(err, &re) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if re.Status != http.StatusConflict || re.Detail != "This slot is no longer available" {
		t.Fatalf("unexpected rejection %#v", re)
	}
	if got := UserMessage(err, "Booking failed."); got != "This slot is no longer available." {
		t.Fatalf("unexpected user message %q", got)
	}
	if obs.outcomes[0] != "rejected" {
		t.Fatalf("expected rejected outcome, got %v", obs.outcomes)
	}
}

func TestDoNotFoundMatchesSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Patient not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	err := client.Do(context.Background(), "recognize", http.MethodPost, "/api/patients/recognize", map[string]string{}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDoNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	obs := &recordingObserver{}
	client, _ := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond, Observer: obs})
	err := client.Do(context.Background(), "start_interview", http.MethodPost, "/api/diagnostic/start", map[string]string{}, nil)
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	msg := UserMessage(err, "I couldn't reach the assessment service.")
	if msg != "I couldn't reach the assessment service. Please check your connection and try again." {
		t.Fatalf("unexpected user message %q", msg)
	}
	if obs.outcomes[0] != "network_error" {
		t.Fatalf("expected network_error outcome, got %v", obs.outcomes)
	}
}

func TestUserMessageHidesTechnicalDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"server error", &RejectionError{Call: "x", Status: 500, Detail: "Server busy"}},
		{"traceback", &RejectionError{Call: "x", Status: 400, Detail: "Traceback (most recent call last)"}},
		{"json detail", &RejectionError{Call: "x", Status: 422, Detail: `[{"loc":["body"]}]`}},
		{"plain error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, "Something went wrong."); got != "Something went wrong." {
				t.Fatalf("expected fallback, got %q", got)
			}
		})
	}
}
