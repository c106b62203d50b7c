package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/securo-labs/threatline/internal/core/domain"
	"github.com/securo-labs/threatline/internal/metrics"
)

// Client calls the external ML service that labels a URL as phishing or safe.
// Classify is a total function over domain.Verdict: transport failures,
// timeouts, non-2xx responses and unparseable bodies all collapse into
// VerdictError. The client performs no internal retry; retry policy belongs
// to the caller.
type Client struct {
	apiURL     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type predictRequest struct {
	URL       string `json:"url"`
	Message   string `json:"message"`
	Evidence  string `json:"evidence"`
	Type      string `json:"type"`
	FirstStep string `json:"firstStep"`
}

type predictResponse struct {
	Prediction *string `json:"prediction"`
}

func NewClient(apiURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "threat-classifier",
		MaxRequests: 1,
		Interval:    0, // Don't reset counts automatically
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("⚡ Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Classify sends a single-shot prediction request and maps the result onto
// the verdict set the intake decision table branches on.
func (c *Client) Classify(ctx context.Context, report domain.ThreatReport) domain.Verdict {
	timer := metrics.StartClassifierTimer()
	defer timer.ObserveDuration()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.predict(ctx, report)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordClassifierError("circuit_open")
		}
		log.Printf("⚠️  Classifier call failed: %v", err)
		return domain.VerdictError
	}

	return result.(domain.Verdict)
}

func (c *Client) predict(ctx context.Context, report domain.ThreatReport) (domain.Verdict, error) {
	body := predictRequest{
		URL:       report.LocationURL,
		Message:   report.Message,
		Evidence:  report.Evidence,
		Type:      string(report.Type),
		FirstStep: report.FirstStep,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return domain.VerdictError, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return domain.VerdictError, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordClassifierError("timeout")
		} else {
			metrics.RecordClassifierError("connection")
		}
		return domain.VerdictError, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordClassifierError("status")
		return domain.VerdictError, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var prediction predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		metrics.RecordClassifierError("parse")
		return domain.VerdictError, fmt.Errorf("failed to decode response: %w", err)
	}

	if prediction.Prediction == nil {
		metrics.RecordClassifierError("parse")
		return domain.VerdictError, fmt.Errorf("response is missing the prediction field")
	}

	switch *prediction.Prediction {
	case "phishing":
		return domain.VerdictPhishing, nil
	case "safe":
		return domain.VerdictSafe, nil
	default:
		// Anything the model invents beyond the known labels is treated as a
		// failed classification.
		return domain.VerdictError, nil
	}
}
