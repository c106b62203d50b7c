package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/securo-labs/threatline/internal/core/domain"
	"github.com/securo-labs/threatline/internal/core/ports"
	"github.com/securo-labs/threatline/internal/metrics"
)

type RestHandler struct {
	repo       ports.ReportRepository
	classifier ports.ThreatClassifier
	publisher  ports.ReportPublisher
}

func NewRestHandler(repo ports.ReportRepository, classifier ports.ThreatClassifier, publisher ports.ReportPublisher) *RestHandler {
	return &RestHandler{
		repo:       repo,
		classifier: classifier,
		publisher:  publisher,
	}
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "threatline-api",
	}
	writeJSON(w, http.StatusOK, response)
}

// Status - liveness probe for the reporting pipeline
func (h *RestHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Threat reporting service is running")
}

// ReportThreat - accept a threat report, verify it against the ML classifier
// and hand confirmed phishing reports to the broker. The accept/reject
// decision is strictly verdict-driven; nothing is persisted here.
func (h *RestHandler) ReportThreat(w http.ResponseWriter, r *http.Request) {
	var report domain.ThreatReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if report.LocationURL == "" {
		writeError(w, http.StatusBadRequest, "locationUrl is required")
		return
	}
	if u, err := url.ParseRequestURI(report.LocationURL); err != nil || u.Scheme == "" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "locationUrl is not a valid URL")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	verdict := h.classifier.Classify(ctx, report)
	metrics.RecordSubmission(string(verdict))

	switch verdict {
	case domain.VerdictPhishing:
		// Dedup key for replays; the id stays unset until the consumer
		// persists the record.
		report.ID = 0
		report.ReportKey = uuid.NewString()

		if err := h.publisher.Publish(ctx, report); err != nil {
			log.Printf("❌ Failed to publish threat report: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue threat report")
			return
		}
		writeText(w, http.StatusOK, "Phishing threat reported successfully")

	case domain.VerdictSafe:
		writeText(w, http.StatusOK, "URL is safe. No action taken.")

	default:
		writeError(w, http.StatusBadGateway, "ML service unreachable or failed.")
	}
}

// ListReports - query persisted threat reports, optionally filtered by type
// and/or a strict lower bound on the ingestion timestamp.
func (h *RestHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	threatType := r.URL.Query().Get("type")
	since := r.URL.Query().Get("since")

	var after time.Time
	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use RFC3339, e.g. 2026-01-02T15:04:05Z)")
			return
		}
		after = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var reports []domain.ThreatReport
	var err error

	switch {
	case threatType != "" && !after.IsZero():
		reports, err = h.repo.FindByTypeAndAfter(ctx, domain.ThreatType(threatType), after)
	case threatType != "":
		reports, err = h.repo.FindByType(ctx, domain.ThreatType(threatType))
	case !after.IsZero():
		reports, err = h.repo.FindAfter(ctx, after)
	default:
		reports, err = h.repo.FindAll(ctx)
	}

	if err != nil {
		log.Printf("❌ Failed to query threat reports: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to query threat reports")
		return
	}

	if reports == nil {
		reports = []domain.ThreatReport{}
	}

	response := map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	}
	writeJSON(w, http.StatusOK, response)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(message)); err != nil {
		log.Printf("Error writing text response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
