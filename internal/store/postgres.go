// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"company-intel/internal/common/database"
	commonerrors "company-intel/internal/common/errors"
	"company-intel/internal/models"

	"github.com/google/uuid"
)

var ErrReportNotFound = errors.New("REPORT_NOT_FOUND")

const (
	upsertReport = `INSERT INTO intelligence_reports
		(run_id, company, status, raw_data, analysis, error, sources, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			raw_data = EXCLUDED.raw_data,
			analysis = EXCLUDED.analysis,
			error = EXCLUDED.error,
			sources = EXCLUDED.sources,
			finished_at = EXCLUDED.finished_at`

	deleteMemory = `DELETE FROM memory_messages WHERE run_id = $1`

	insertMemory = `INSERT INTO memory_messages (run_id, position, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	selectReport = `SELECT run_id, company, status, raw_data, analysis, error, sources, started_at, finished_at
		FROM intelligence_reports WHERE run_id = $1`

	selectMemory = `SELECT role, content, created_at FROM memory_messages
		WHERE run_id = $1 ORDER BY position`

	selectByCompany = `SELECT run_id, company, status, raw_data, analysis, error, sources, started_at, finished_at
		FROM intelligence_reports WHERE lower(company) = lower($1)
		ORDER BY finished_at DESC LIMIT $2`
)

// PostgresStore keeps reports and their conversation memory.
type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

// Save upserts the report and replaces its memory rows in one transaction.
func (s *PostgresStore) Save(ctx context.Context, r *models.Report) error {
	sources, err := json.Marshal(nonNil(r.Sources))
	if err != nil {
		return commonerrors.NewReportPersistFailedError(s.Name(), err)
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertReport,
			r.RunID, r.Company, string(r.Status), r.RawData, r.Analysis, r.Error,
			sources, r.StartedAt, r.FinishedAt,
		); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteMemory, r.RunID); err != nil {
			return fmt.Errorf("clear memory: %w", err)
		}
		for i, m := range r.Memory {
			if _, err := tx.ExecContext(ctx, insertMemory, r.RunID, i, string(m.Role), m.Content, m.CreatedAt); err != nil {
				return fmt.Errorf("insert memory %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return commonerrors.NewReportPersistFailedError(s.Name(), err)
	}
	return nil
}

// GetReport loads one report with its memory.
func (s *PostgresStore) GetReport(ctx context.Context, runID string) (*models.Report, error) {
	id, err := uuid.Parse(strings.TrimSpace(runID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, runID)
	}
	runID = id.String()

	r, err := scanReport(s.db.DB.QueryRowContext(ctx, selectReport, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	rows, err := s.db.DB.QueryContext(ctx, selectMemory, runID)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    models.MemoryMessage
			role string
		)
		if err := rows.Scan(&role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Role = models.MessageRole(role)
		r.Memory = append(r.Memory, m)
	}
	return r, rows.Err()
}

// ListReports returns the latest reports for a company, newest first,
// without memory.
func (s *PostgresStore) ListReports(ctx context.Context, company string, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.DB.QueryContext(ctx, selectByCompany, strings.TrimSpace(company), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r       models.Report
		status  string
		sources []byte
	)
	if err := row.Scan(&r.RunID, &r.Company, &status, &r.RawData, &r.Analysis, &r.Error,
		&sources, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = models.ReportStatus(status)
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &r.Sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
