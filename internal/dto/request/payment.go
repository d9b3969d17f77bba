package request

type CreateOrderRequest struct {
	BookingID string `json:"bookingId" validate:"required,uuid"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required,max=100"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required,max=100"`
	GatewaySignature string `json:"gatewaySignature" validate:"required,hexadecimal,max=256"`
	BookingID        string `json:"bookingId" validate:"required,uuid"`
}

type RefundRequest struct {
	BookingID string `json:"bookingId" validate:"required,uuid"`
	Reason    string `json:"reason,omitempty" validate:"max=500"`
}
