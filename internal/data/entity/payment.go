package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Payment is the booking's payment sub-record. It lives on the booking row so
// that status and payment changes commit together.
type Payment struct {
	Status              PaymentStatus `db:"payment_status" json:"status"`
	GatewayOrderID      *string       `db:"gateway_order_id" json:"gatewayOrderId,omitempty"`
	TransactionID       *string       `db:"transaction_id" json:"transactionId,omitempty"`
	PaidAmount          int64         `db:"paid_amount" json:"paidAmount"`
	PaidAt              *time.Time    `db:"paid_at" json:"paidAt,omitempty"`
	RefundTransactionID *string       `db:"refund_transaction_id" json:"refundTransactionId,omitempty"`
	RefundAmount        int64         `db:"refund_amount" json:"refundAmount"`
	RefundedAt          *time.Time    `db:"refunded_at" json:"refundedAt,omitempty"`
	FailureReason       *string       `db:"failure_reason" json:"failureReason,omitempty"`
}

func (p Payment) IsSettled() bool {
	switch p.Status {
	case PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

func (p Payment) HasTransaction(id string) bool {
	return p.TransactionID != nil && *p.TransactionID == id
}

func (p Payment) HasRefund(id string) bool {
	return p.RefundTransactionID != nil && *p.RefundTransactionID == id
}

func (p Payment) OrderID() string {
	if p.GatewayOrderID == nil {
		return ""
	}
	return *p.GatewayOrderID
}
