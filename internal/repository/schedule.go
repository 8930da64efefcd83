package repository

import (
	"context"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
)

// The scheduler core depends on interfaces, not concrete implementations, so
// the postgres layer can be swapped and tests can pass in mocks.
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.BudgetSchedule) (*domain.BudgetSchedule, error)
	GetByID(ctx context.Context, id int64) (*domain.BudgetSchedule, error)
	ListByShop(ctx context.Context, shopID int64) ([]*domain.BudgetSchedule, error)

	// ListActive returns every active schedule, ordered by id ASC so the
	// matcher's batch cap cuts off deterministically.
	ListActive(ctx context.Context) ([]*domain.BudgetSchedule, error)

	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}
