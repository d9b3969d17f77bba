package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// BookingRepository persists bookings. Update is a compare-and-set on the
// version column: it succeeds only when the stored version equals
// expectedVersion and then advances it by one.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Booking, error)
	FindPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking, expectedVersion int64) error
}

const bookingColumns = `
	id, booking_number, customer_id, provider_id, service_id,
	scheduled_date, estimated_duration, actual_duration, address, contact_phone, special_instructions,
	status, base_amount, additional_charges, discount, tax_amount, total_amount, currency,
	payment_status, gateway_order_id, transaction_id, paid_amount, paid_at,
	refund_transaction_id, refund_amount, refunded_at, failure_reason,
	cancelled_at, cancelled_by, cancellation_reason, suggested_refund,
	work_summary, status_history, version, created_at, updated_at`

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if err := booking.CheckInvariants(); err != nil {
		return err
	}
	charges, history, work, err := encodeBookingDocs(booking)
	if err != nil {
		return err
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)`

	_, err = r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingNumber,
		booking.CustomerID,
		booking.ProviderID,
		booking.ServiceID,
		booking.ScheduledDate,
		booking.EstimatedDuration,
		booking.ActualDuration,
		booking.Address,
		booking.ContactPhone,
		booking.SpecialInstructions,
		booking.Status,
		booking.Pricing.BaseAmount,
		charges,
		booking.Pricing.Discount,
		booking.Pricing.TaxAmount,
		booking.Pricing.TotalAmount,
		booking.Pricing.Currency,
		booking.Payment.Status,
		booking.Payment.GatewayOrderID,
		booking.Payment.TransactionID,
		booking.Payment.PaidAmount,
		booking.Payment.PaidAt,
		booking.Payment.RefundTransactionID,
		booking.Payment.RefundAmount,
		booking.Payment.RefundedAt,
		booking.Payment.FailureReason,
		booking.Cancellation.CancelledAt,
		booking.Cancellation.CancelledBy,
		booking.Cancellation.Reason,
		booking.Cancellation.SuggestedRefund,
		work,
		history,
		int64(1),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create booking %s: %w", booking.BookingNumber, ErrDuplicate)
		}
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_number", booking.BookingNumber),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingNumber, err)
	}

	booking.Version = 1
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}
	return booking, nil
}

func (r *bookingRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE gateway_order_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to find booking by gateway order ID",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("find booking by gateway order ID %s: %w", orderID, err)
	}
	return booking, nil
}

func (r *bookingRepository) FindPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE payment_status = 'pending'
		  AND gateway_order_id IS NOT NULL
		  AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		r.log.Error("Failed to find bookings with pending payments", zap.Error(err))
		return nil, fmt.Errorf("find pending payments: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending payments: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking, expectedVersion int64) error {
	if err := booking.CheckInvariants(); err != nil {
		return err
	}
	charges, history, work, err := encodeBookingDocs(booking)
	if err != nil {
		return err
	}

	// booking_number, parties and scheduled date never change after creation.
	query := `
		UPDATE bookings
		SET actual_duration = $3, status = $4, additional_charges = $5, discount = $6,
		    tax_amount = $7, total_amount = $8, payment_status = $9, gateway_order_id = $10,
		    transaction_id = $11, paid_amount = $12, paid_at = $13, refund_transaction_id = $14,
		    refund_amount = $15, refunded_at = $16, failure_reason = $17, cancelled_at = $18,
		    cancelled_by = $19, cancellation_reason = $20, suggested_refund = $21,
		    work_summary = $22, status_history = $23, updated_at = $24, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		expectedVersion,
		booking.ActualDuration,
		booking.Status,
		charges,
		booking.Pricing.Discount,
		booking.Pricing.TaxAmount,
		booking.Pricing.TotalAmount,
		booking.Payment.Status,
		booking.Payment.GatewayOrderID,
		booking.Payment.TransactionID,
		booking.Payment.PaidAmount,
		booking.Payment.PaidAt,
		booking.Payment.RefundTransactionID,
		booking.Payment.RefundAmount,
		booking.Payment.RefundedAt,
		booking.Payment.FailureReason,
		booking.Cancellation.CancelledAt,
		booking.Cancellation.CancelledBy,
		booking.Cancellation.Reason,
		booking.Cancellation.SuggestedRefund,
		work,
		history,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check booking %s: %w", booking.ID.String(), err)
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("booking %s at version %d: %w", booking.ID.String(), expectedVersion, ErrConcurrentUpdate)
	}

	booking.Version = expectedVersion + 1
	return nil
}

func encodeBookingDocs(b *entity.Booking) (charges, history, work []byte, err error) {
	list := b.Pricing.AdditionalCharges
	if list == nil {
		list = []entity.Charge{}
	}
	if charges, err = json.Marshal(list); err != nil {
		return nil, nil, nil, fmt.Errorf("encode additional charges: %w", err)
	}
	if history, err = json.Marshal(b.StatusHistory); err != nil {
		return nil, nil, nil, fmt.Errorf("encode status history: %w", err)
	}
	if b.WorkSummary != nil {
		if work, err = json.Marshal(b.WorkSummary); err != nil {
			return nil, nil, nil, fmt.Errorf("encode work summary: %w", err)
		}
	}
	return charges, history, work, nil
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var (
		b                      entity.Booking
		charges, history, work []byte
	)
	err := row.Scan(
		&b.ID,
		&b.BookingNumber,
		&b.CustomerID,
		&b.ProviderID,
		&b.ServiceID,
		&b.ScheduledDate,
		&b.EstimatedDuration,
		&b.ActualDuration,
		&b.Address,
		&b.ContactPhone,
		&b.SpecialInstructions,
		&b.Status,
		&b.Pricing.BaseAmount,
		&charges,
		&b.Pricing.Discount,
		&b.Pricing.TaxAmount,
		&b.Pricing.TotalAmount,
		&b.Pricing.Currency,
		&b.Payment.Status,
		&b.Payment.GatewayOrderID,
		&b.Payment.TransactionID,
		&b.Payment.PaidAmount,
		&b.Payment.PaidAt,
		&b.Payment.RefundTransactionID,
		&b.Payment.RefundAmount,
		&b.Payment.RefundedAt,
		&b.Payment.FailureReason,
		&b.Cancellation.CancelledAt,
		&b.Cancellation.CancelledBy,
		&b.Cancellation.Reason,
		&b.Cancellation.SuggestedRefund,
		&work,
		&history,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(charges) > 0 {
		if err := json.Unmarshal(charges, &b.Pricing.AdditionalCharges); err != nil {
			return nil, fmt.Errorf("decode additional charges: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &b.StatusHistory); err != nil {
			return nil, fmt.Errorf("decode status history: %w", err)
		}
	}
	if len(work) > 0 {
		b.WorkSummary = &entity.WorkSummary{}
		if err := json.Unmarshal(work, b.WorkSummary); err != nil {
			return nil, fmt.Errorf("decode work summary: %w", err)
		}
	}
	return &b, nil
}
