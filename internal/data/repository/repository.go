package repository

import (
	"marketplace-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking BookingRepository
	Service ServiceCatalog
	Inbox   WebhookInbox
}

// NewRepository wires the Postgres-backed stores. A nil ddb client falls back
// to the in-process webhook inbox.
func NewRepository(db database.PgxIface, ddb DynamoAPI, inboxTable string, log *zap.Logger) *Repository {
	inbox := NewMemoryWebhookInbox()
	if ddb != nil {
		inbox = NewDynamoWebhookInbox(ddb, inboxTable, log)
	}
	return &Repository{
		Booking: NewBookingRepository(db, log),
		Service: NewServiceCatalog(db, log),
		Inbox:   inbox,
	}
}

// NewMemoryRepository wires in-process stores for local runs and tests.
func NewMemoryRepository(catalog ServiceCatalog, log *zap.Logger) *Repository {
	if catalog == nil {
		catalog = NewMemoryServiceCatalog()
	}
	return &Repository{
		Booking: NewMemoryBookingRepository(log),
		Service: catalog,
		Inbox:   NewMemoryWebhookInbox(),
	}
}
