package service

import (
	"context"
	"sync"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService caches the active services and time slots. A zero ttl keeps
// the first successful load for the process lifetime. A failed load yields an
// empty catalog and is retried on the next call.
type CatalogService struct {
	store  domain.CatalogStore
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	catalog  models.Catalog
	loaded   bool
	loadedAt time.Time
}

func NewCatalogService(store domain.CatalogStore, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogService{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Catalog returns the cached catalog, loading it when needed.
func (s *CatalogService) Catalog(ctx context.Context) models.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && (s.ttl <= 0 || s.now().Sub(s.loadedAt) < s.ttl) {
		return s.catalog
	}

	services, err := s.store.ListActiveServiceTypes(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load service types")
		return emptyCatalog()
	}
	slots, err := s.store.ListActiveTimeSlots(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load time slots")
		return emptyCatalog()
	}

	s.catalog = models.Catalog{Services: services, Slots: slots}
	s.loaded = true
	s.loadedAt = s.now()
	s.logger.Debug().Int("services", len(services)).Int("time_slots", len(slots)).Msg("catalog loaded")
	return s.catalog
}

// Invalidate drops the cached catalog.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// UpdateServicePrice changes a base price. Existing bookings keep their price.
func (s *CatalogService) UpdateServicePrice(ctx context.Context, key string, price float64) error {
	if err := s.store.UpdateServicePrice(ctx, key, price); err != nil {
		return err
	}
	s.Invalidate()
	s.logger.Info().Str("service", key).Float64("price", price).Msg("service price updated")
	return nil
}

func emptyCatalog() models.Catalog {
	return models.Catalog{
		Services: []models.ServiceType{},
		Slots:    []models.TimeSlot{},
	}
}
