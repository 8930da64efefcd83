package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = `id, shop_id, campaign_id, campaign_kind, budget,
	       hour_start, minute_start, hour_end, minute_end,
	       days_of_week, specific_dates, is_active, created_at, updated_at`

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.BudgetSchedule) (*domain.BudgetSchedule, error) {
	query := `
		INSERT INTO budget_schedules (
			shop_id, campaign_id, campaign_kind, budget,
			hour_start, minute_start, hour_end, minute_end,
			days_of_week, specific_dates, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + scheduleColumns

	row := r.pool.QueryRow(ctx, query,
		s.ShopID, s.CampaignID, s.CampaignKind, s.Budget,
		s.HourStart, s.MinuteStart, s.HourEnd, s.MinuteEnd,
		s.DaysOfWeek, s.SpecificDates, s.Active,
	)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.BudgetSchedule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM budget_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) ListByShop(ctx context.Context, shopID int64) ([]*domain.BudgetSchedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM budget_schedules WHERE shop_id = $1 ORDER BY id ASC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list schedules by shop: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*domain.BudgetSchedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM budget_schedules WHERE is_active ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ScheduleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE budget_schedules SET is_active = $2, updated_at = NOW()
		 WHERE id = $1 AND is_active = $3`,
		id, active, !active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish not-found vs already-in-desired-state
		if _, err := r.GetByID(ctx, id); err != nil {
			return err // ErrScheduleNotFound
		}
		return domain.ErrScheduleAlreadySet
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func collectSchedules(rows pgx.Rows) ([]*domain.BudgetSchedule, error) {
	var schedules []*domain.BudgetSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row rowScanner) (*domain.BudgetSchedule, error) {
	var s domain.BudgetSchedule
	err := row.Scan(
		&s.ID, &s.ShopID, &s.CampaignID, &s.CampaignKind, &s.Budget,
		&s.HourStart, &s.MinuteStart, &s.HourEnd, &s.MinuteEnd,
		&s.DaysOfWeek, &s.SpecificDates, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}
