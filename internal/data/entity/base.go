package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is embedded by rows that are never hard-deleted.
type Base struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Versioned rows carry an optimistic concurrency token bumped on every write.
type Versioned struct {
	Version int64 `db:"version"`
}
