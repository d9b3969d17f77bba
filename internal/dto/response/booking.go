package response

import (
	"time"

	"marketplace-booking/internal/data/entity"
)

type BookingResponse struct {
	ID                  string                      `json:"id"`
	BookingNumber       string                      `json:"bookingNumber"`
	CustomerID          string                      `json:"customerId"`
	ProviderID          string                      `json:"providerId"`
	ServiceID           string                      `json:"serviceId"`
	ScheduledDate       time.Time                   `json:"scheduledDate"`
	EstimatedDuration   int                         `json:"estimatedDuration"`
	ActualDuration      *int                        `json:"actualDuration,omitempty"`
	Address             string                      `json:"address"`
	ContactPhone        *string                     `json:"contactPhone,omitempty"`
	SpecialInstructions *string                     `json:"specialInstructions,omitempty"`
	Status              entity.BookingStatus        `json:"status"`
	AllowedTransitions  []entity.BookingStatus      `json:"allowedTransitions"`
	Pricing             entity.Pricing              `json:"pricing"`
	Payment             entity.Payment              `json:"payment"`
	Cancellation        *entity.Cancellation        `json:"cancellation,omitempty"`
	WorkSummary         *entity.WorkSummary         `json:"workSummary,omitempty"`
	StatusHistory       []entity.StatusHistoryEntry `json:"statusHistory"`
	Version             int64                       `json:"version"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

type CancelBookingResponse struct {
	Booking       BookingResponse `json:"booking"`
	RefundAmount  int64           `json:"refundAmount"`
	RefundPercent int64           `json:"refundPercent"`
}

// BookingToResponse flattens a booking for the API. allowed lists the
// statuses the booking may move to next.
func BookingToResponse(b *entity.Booking, allowed []entity.BookingStatus) BookingResponse {
	resp := BookingResponse{
		ID:                  b.ID.String(),
		BookingNumber:       b.BookingNumber,
		CustomerID:          b.CustomerID.String(),
		ProviderID:          b.ProviderID.String(),
		ServiceID:           b.ServiceID.String(),
		ScheduledDate:       b.ScheduledDate,
		EstimatedDuration:   b.EstimatedDuration,
		ActualDuration:      b.ActualDuration,
		Address:             b.Address,
		ContactPhone:        b.ContactPhone,
		SpecialInstructions: b.SpecialInstructions,
		Status:              b.Status,
		AllowedTransitions:  allowed,
		Pricing:             b.Pricing,
		Payment:             b.Payment,
		WorkSummary:         b.WorkSummary,
		StatusHistory:       b.StatusHistory.Entries(),
		Version:             b.Version,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
	if resp.AllowedTransitions == nil {
		resp.AllowedTransitions = []entity.BookingStatus{}
	}
	if resp.Pricing.AdditionalCharges == nil {
		resp.Pricing.AdditionalCharges = []entity.Charge{}
	}
	if b.Cancellation.CancelledAt != nil {
		c := b.Cancellation
		resp.Cancellation = &c
	}
	return resp
}
