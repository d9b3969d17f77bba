package request

import "time"

type CreateBookingRequest struct {
	ServiceID           string    `json:"serviceId" validate:"required,uuid"`
	ScheduledDate       time.Time `json:"scheduledDate" validate:"required"`
	Address             string    `json:"address" validate:"required,max=500"`
	ContactPhone        *string   `json:"contactPhone,omitempty" validate:"omitempty,e164"`
	SpecialInstructions *string   `json:"specialInstructions,omitempty" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status      string              `json:"status" validate:"required,oneof=confirmed in_progress completed cancelled no_show"`
	Reason      string              `json:"reason,omitempty" validate:"max=500"`
	Comments    string              `json:"comments,omitempty" validate:"max=1000"`
	WorkSummary *WorkSummaryRequest `json:"workSummary,omitempty"`
}

type WorkSummaryRequest struct {
	BeforeEvidence []string `json:"beforeEvidence,omitempty" validate:"omitempty,max=20,dive,url"`
	AfterEvidence  []string `json:"afterEvidence,omitempty" validate:"omitempty,max=20,dive,url"`
	Narrative      string   `json:"narrative,omitempty" validate:"max=2000"`
}

type AddChargeRequest struct {
	Description string `json:"description" validate:"required,max=200"`
	Amount      int64  `json:"amount" validate:"gt=0"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
