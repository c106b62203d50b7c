package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securo-labs/threatline/internal/core/domain"
	"github.com/securo-labs/threatline/internal/core/ports"
)

const reportColumns = `id, report_key, message, type, location_url, incident_location,
		threat_date, more_information, evidence, reason_for_delay, first_step, "timestamp"`

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists a threat report and returns the generated id. Replays of
// the same dedup key are absorbed by the conflict clause and reported as
// ports.ErrDuplicateReport.
func (r *PostgresRepository) Insert(ctx context.Context, report domain.ThreatReport) (int64, error) {
	query := `
		INSERT INTO threat_reports (report_key, message, type, location_url, incident_location,
			threat_date, more_information, evidence, reason_for_delay, first_step, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (report_key) DO NOTHING
		RETURNING id
	`

	// Empty keys must not collide with each other; store them as NULL.
	var key any
	if report.ReportKey != "" {
		key = report.ReportKey
	}

	var id int64
	err := r.db.QueryRow(ctx, query,
		key,
		report.Message,
		report.Type,
		report.LocationURL,
		report.IncidentLocation,
		report.ThreatDate,
		report.MoreInformation,
		report.Evidence,
		report.ReasonForDelay,
		report.FirstStep,
		report.Timestamp,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		// ON CONFLICT DO NOTHING returned no row: the key already exists.
		return 0, ports.ErrDuplicateReport
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert threat report: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]domain.ThreatReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM threat_reports
		ORDER BY "timestamp" DESC
	`
	return r.queryReports(ctx, query)
}

func (r *PostgresRepository) FindByType(ctx context.Context, threatType domain.ThreatType) ([]domain.ThreatReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM threat_reports
		WHERE type = $1
		ORDER BY "timestamp" DESC
	`
	return r.queryReports(ctx, query, threatType)
}

func (r *PostgresRepository) FindAfter(ctx context.Context, after time.Time) ([]domain.ThreatReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM threat_reports
		WHERE "timestamp" > $1
		ORDER BY "timestamp" DESC
	`
	return r.queryReports(ctx, query, after)
}

func (r *PostgresRepository) FindByTypeAndAfter(ctx context.Context, threatType domain.ThreatType, after time.Time) ([]domain.ThreatReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM threat_reports
		WHERE type = $1 AND "timestamp" > $2
		ORDER BY "timestamp" DESC
	`
	return r.queryReports(ctx, query, threatType, after)
}

func (r *PostgresRepository) queryReports(ctx context.Context, query string, args ...any) ([]domain.ThreatReport, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query threat reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ThreatReport

	for rows.Next() {
		var report domain.ThreatReport
		var key *string
		err := rows.Scan(
			&report.ID,
			&key,
			&report.Message,
			&report.Type,
			&report.LocationURL,
			&report.IncidentLocation,
			&report.ThreatDate,
			&report.MoreInformation,
			&report.Evidence,
			&report.ReasonForDelay,
			&report.FirstStep,
			&report.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threat report: %w", err)
		}
		if key != nil {
			report.ReportKey = *key
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reports, nil
}

// IsTransient reports whether a persistence error is worth retrying.
// Data-dependent failures (constraint violations, bad input) will fail the
// same way on every redelivery; everything else (deadlocks, lost connections,
// timeouts) may clear up.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", // data exception
			"23": // integrity constraint violation
			return false
		}
	}
	return true
}
