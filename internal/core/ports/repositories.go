package ports

import (
	"context"
	"errors"
	"time"

	"github.com/securo-labs/threatline/internal/core/domain"
)

// ErrDuplicateReport is returned by Insert when the report's dedup key already
// exists. Replayed topic messages hit this path; consumers treat it as success.
var ErrDuplicateReport = errors.New("report already persisted")

type ReportRepository interface {
	// Insert persists the report and returns the generated id.
	Insert(ctx context.Context, report domain.ThreatReport) (int64, error)
	FindAll(ctx context.Context) ([]domain.ThreatReport, error)
	FindByType(ctx context.Context, threatType domain.ThreatType) ([]domain.ThreatReport, error)
	FindAfter(ctx context.Context, after time.Time) ([]domain.ThreatReport, error)
	FindByTypeAndAfter(ctx context.Context, threatType domain.ThreatType, after time.Time) ([]domain.ThreatReport, error)
}
