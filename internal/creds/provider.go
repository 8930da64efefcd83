package creds

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/repository"
)

// Provider resolves shop credentials through a run-scoped read-through cache.
// A fresh Provider is created for every scheduler run; there is no TTL since
// a run is short-lived.
type Provider struct {
	repo   repository.CredentialRepository
	logger *slog.Logger

	mu      sync.Mutex
	entries map[int64]*entry
}

// entry serializes population per shop: concurrent first-access from two
// waves' workers performs exactly one store lookup.
type entry struct {
	once  sync.Once
	creds *domain.ShopCredentials
	found bool
}

func NewProvider(repo repository.CredentialRepository, logger *slog.Logger) *Provider {
	return &Provider{
		repo:    repo,
		logger:  logger.With("component", "creds"),
		entries: make(map[int64]*entry),
	}
}

// Resolve returns the shop's credentials, or found=false when the row is
// missing or incomplete (empty token, partner id, or partner key).
func (p *Provider) Resolve(ctx context.Context, shopID int64) (*domain.ShopCredentials, bool) {
	p.mu.Lock()
	e, ok := p.entries[shopID]
	if !ok {
		e = &entry{}
		p.entries[shopID] = e
	}
	p.mu.Unlock()

	e.once.Do(func() {
		c, err := p.repo.Get(ctx, shopID)
		if err != nil {
			if !errors.Is(err, domain.ErrCredentialsNotFound) {
				p.logger.Error("credential lookup", "shop_id", shopID, "error", err)
			}
			return
		}
		if !c.Valid() {
			p.logger.Warn("incomplete credentials", "shop_id", shopID)
			return
		}
		e.creds, e.found = c, true
	})

	return e.creds, e.found
}
