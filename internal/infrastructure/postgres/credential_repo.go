package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) Get(ctx context.Context, shopID int64) (*domain.ShopCredentials, error) {
	var c domain.ShopCredentials
	err := r.pool.QueryRow(ctx, `
		SELECT shop_id, access_token, partner_id, partner_key
		FROM shop_credentials
		WHERE shop_id = $1`,
		shopID,
	).Scan(&c.ShopID, &c.AccessToken, &c.PartnerID, &c.PartnerKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &c, nil
}
