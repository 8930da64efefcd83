package repository

import (
	"context"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
)

type AuditRepository interface {
	// InsertResult appends one execution log row. Callers treat failures as
	// best-effort — an unwritable audit row must never abort a run.
	InsertResult(ctx context.Context, runID string, r *domain.ExecutionResult) error

	// InsertRun appends the run-level activity row.
	InsertRun(ctx context.Context, s *domain.RunSummary) error

	// ListResults returns the execution log rows of one run, in insertion
	// order.
	ListResults(ctx context.Context, runID string) ([]*domain.ExecutionResult, error)
}
