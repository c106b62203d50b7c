package ports

import (
	"context"

	"github.com/securo-labs/threatline/internal/core/domain"
)

// ThreatClassifier bridges to the external ML service. Classify is total: it
// never returns a Go error, every failure mode maps to domain.VerdictError.
type ThreatClassifier interface {
	Classify(ctx context.Context, report domain.ThreatReport) domain.Verdict
}

// ReportPublisher delivers accepted reports onto the threat topic. Publish
// returns only after the broker confirmed durability, or with an error once
// the internal retry budget is exhausted.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.ThreatReport) error
	Close() error
}
