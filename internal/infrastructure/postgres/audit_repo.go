package postgres

import (
	"context"
	"fmt"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) InsertResult(ctx context.Context, runID string, res *domain.ExecutionResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO execution_log (
			run_id, schedule_id, shop_id, campaign_id, budget,
			outcome, error, retries, skip_reason, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID, res.ScheduleID, res.ShopID, res.CampaignID, res.Budget,
		res.Outcome, nullable(res.Error), res.Retries, nullable(string(res.SkipReason)), res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution log: %w", err)
	}
	return nil
}

func (r *AuditRepository) InsertRun(ctx context.Context, s *domain.RunSummary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (
			run_id, processed, success_count, failure_count, skipped_count,
			duration_ms, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.RunID, s.Processed, s.Succeeded, s.Failed, s.Skipped,
		s.DurationMS, nullable(s.Error),
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListResults(ctx context.Context, runID string) ([]*domain.ExecutionResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT schedule_id, shop_id, campaign_id, budget,
		       outcome, COALESCE(error, ''), retries, COALESCE(skip_reason, ''), finished_at
		FROM execution_log
		WHERE run_id = $1
		ORDER BY id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("list execution log: %w", err)
	}
	defer rows.Close()

	var results []*domain.ExecutionResult
	for rows.Next() {
		var res domain.ExecutionResult
		if err := rows.Scan(
			&res.ScheduleID, &res.ShopID, &res.CampaignID, &res.Budget,
			&res.Outcome, &res.Error, &res.Retries, &res.SkipReason, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution log: %w", err)
	}
	return results, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
