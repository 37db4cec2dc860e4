package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/cache"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
)

// CatalogService serves the case catalog for display.
type CatalogService struct {
	catalogRepo *repository.CatalogRepository
	cache       *cache.CatalogCache
}

// NewCatalogService creates a new CatalogService instance.
// catalogCache may be nil.
func NewCatalogService(catalogRepo *repository.CatalogRepository, catalogCache *cache.CatalogCache) *CatalogService {
	return &CatalogService{catalogRepo: catalogRepo, cache: catalogCache}
}

// ListActive returns active items ordered ascending by weight.
// Cache failures fall through to the database.
func (s *CatalogService) ListActive(ctx context.Context) ([]model.CatalogItem, error) {
	items, ok, err := s.cache.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Catalog cache read failed")
	}
	if ok {
		return items, nil
	}

	items, err = s.catalogRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, items); err != nil {
		log.Warn().Err(err).Msg("Catalog cache write failed")
	}
	return items, nil
}

// Refresh drops the cached listing so the next read hits the database.
func (s *CatalogService) Refresh(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
