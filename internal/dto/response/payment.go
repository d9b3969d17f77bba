package response

import "marketplace-booking/internal/data/entity"

type OrderResponse struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	BookingID string `json:"bookingId"`
	KeyID     string `json:"keyId,omitempty"`
}

type VerifyPaymentResponse struct {
	BookingID     string               `json:"bookingId"`
	BookingStatus entity.BookingStatus `json:"bookingStatus"`
	PaymentStatus entity.PaymentStatus `json:"paymentStatus"`
	TransactionID string               `json:"transactionId"`
	// AlreadyApplied is true when another path recorded this payment first.
	AlreadyApplied bool `json:"alreadyApplied"`
}

type RefundResponse struct {
	RefundID      string               `json:"refundId"`
	Amount        int64                `json:"amount"`
	BookingID     string               `json:"bookingId"`
	PaymentStatus entity.PaymentStatus `json:"paymentStatus"`
}

type WebhookResponse struct {
	EventID string `json:"eventId,omitempty"`
	Outcome string `json:"outcome"`
}

type ReconcileResponse struct {
	Scanned int `json:"scanned"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
