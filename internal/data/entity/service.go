package entity

import "github.com/google/uuid"

// ServiceOffering is the slice of the provider's catalog entry the booking
// engine needs to price a booking. The catalog itself is owned elsewhere.
type ServiceOffering struct {
	ID                uuid.UUID `db:"id"`
	ProviderID        uuid.UUID `db:"provider_id"`
	Name              string    `db:"name"`
	BasePrice         int64     `db:"base_price"`
	Discount          int64     `db:"discount"`
	EstimatedDuration int       `db:"estimated_duration"`
	IsActive          bool      `db:"is_active"`
}
