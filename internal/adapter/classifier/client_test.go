package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/securo-labs/threatline/internal/core/domain"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClassifyVerdicts(t *testing.T) {
	tests := []struct {
		name       string
		prediction string
		want       domain.Verdict
	}{
		{"phishing prediction", "phishing", domain.VerdictPhishing},
		{"safe prediction", "safe", domain.VerdictSafe},
		{"unknown prediction", "suspicious", domain.VerdictError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"prediction": tt.prediction})
			})

			client := NewClient(srv.URL, 2*time.Second)
			got := client.Classify(context.Background(), domain.ThreatReport{
				Message:     "test report",
				LocationURL: "http://bad.example/x",
			})

			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifySendsNamedSlots(t *testing.T) {
	var received map[string]string
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"prediction": "safe"})
	})

	client := NewClient(srv.URL, 2*time.Second)
	client.Classify(context.Background(), domain.ThreatReport{
		Message:     "odd email",
		Type:        domain.Phishing,
		LocationURL: "http://bad.example/x",
		Evidence:    "screenshot attached",
		FirstStep:   "clicked the link",
	})

	if received["url"] != "http://bad.example/x" {
		t.Errorf("expected url slot, got %q", received["url"])
	}
	if received["message"] != "odd email" {
		t.Errorf("expected message slot, got %q", received["message"])
	}
	if received["evidence"] != "screenshot attached" {
		t.Errorf("expected evidence slot, got %q", received["evidence"])
	}
	if received["type"] != "Phishing" {
		t.Errorf("expected type slot, got %q", received["type"])
	}
	if received["firstStep"] != "clicked the link" {
		t.Errorf("expected firstStep slot, got %q", received["firstStep"])
	}
}

func TestClassifyCollapsesFailuresToError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json at all"))
			},
		},
		{
			"missing prediction field",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"result": "phishing"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, tt.handler)

			client := NewClient(srv.URL, 2*time.Second)
			got := client.Classify(context.Background(), domain.ThreatReport{
				LocationURL: "http://x",
			})

			if got != domain.VerdictError {
				t.Errorf("Classify() = %q, want %q", got, domain.VerdictError)
			}
		})
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	// Grab an address with nothing listening on it.
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	client := NewClient(deadURL, 2*time.Second)
	got := client.Classify(context.Background(), domain.ThreatReport{
		LocationURL: "http://x",
	})

	if got != domain.VerdictError {
		t.Errorf("Classify() = %q, want %q", got, domain.VerdictError)
	}
}

func TestClassifyTimeout(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"prediction": "phishing"})
	})

	client := NewClient(srv.URL, 50*time.Millisecond)
	got := client.Classify(context.Background(), domain.ThreatReport{
		LocationURL: "http://x",
	})

	if got != domain.VerdictError {
		t.Errorf("slow classifier should yield %q, got %q", domain.VerdictError, got)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	client := NewClient(deadURL, 100*time.Millisecond)

	// Five consecutive failures trip the breaker; later calls short-circuit
	// but still surface the error verdict.
	for i := 0; i < 7; i++ {
		if got := client.Classify(context.Background(), domain.ThreatReport{LocationURL: "http://x"}); got != domain.VerdictError {
			t.Fatalf("call %d: Classify() = %q, want %q", i, got, domain.VerdictError)
		}
	}
}
