package repository

import (
	"context"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
)

type CredentialRepository interface {
	// Get returns domain.ErrCredentialsNotFound when no row exists for the
	// shop. Rows with empty token/partner fields are returned as-is; the
	// credential provider decides whether they are usable.
	Get(ctx context.Context, shopID int64) (*domain.ShopCredentials, error)
}
