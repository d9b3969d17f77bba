package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ServiceCatalog is a read-only view of the provider catalog.
type ServiceCatalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error)
}

type serviceCatalog struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceCatalog(db database.PgxIface, log *zap.Logger) ServiceCatalog {
	return &serviceCatalog{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

func (r *serviceCatalog) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	query := `
		SELECT id, provider_id, name, base_price, discount, estimated_duration, is_active
		FROM services
		WHERE id = $1
	`

	var s entity.ServiceOffering
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.BasePrice,
		&s.Discount,
		&s.EstimatedDuration,
		&s.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service by ID %s: %w", id.String(), err)
	}
	return &s, nil
}

// MemoryServiceCatalog is a fixed catalog for local runs and tests.
type MemoryServiceCatalog struct {
	mu       sync.RWMutex
	services map[uuid.UUID]entity.ServiceOffering
}

func NewMemoryServiceCatalog(services ...entity.ServiceOffering) *MemoryServiceCatalog {
	c := &MemoryServiceCatalog{services: map[uuid.UUID]entity.ServiceOffering{}}
	for _, s := range services {
		c.Put(s)
	}
	return c
}

func (c *MemoryServiceCatalog) Put(s entity.ServiceOffering) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[s.ID] = s
}

func (c *MemoryServiceCatalog) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}
