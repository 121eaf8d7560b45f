// Package store delivers finished reports to Postgres, Elasticsearch and
// notification channels.
package store

import (
	"context"

	"company-intel/internal/models"
)

// ReportSink receives every report an orchestrator run produces.
type ReportSink interface {
	Name() string
	Save(ctx context.Context, report *models.Report) error
}
