package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MockGateway is an in-process provider for local runs and tests. It keeps
// orders and payments in memory and signs with its own key secret.
type MockGateway struct {
	mu        sync.Mutex
	secret    string
	seq       int
	orders    map[string]*Order
	payments  map[string]*Payment
	refunds   map[string]*Refund
	idem      map[string]string
	failWith  error
	log       *zap.Logger
	available bool
}

func NewMockGateway(secret string, log *zap.Logger) *MockGateway {
	if secret == "" {
		secret = "mock_key_secret"
	}
	log.Info("mock payment gateway enabled")
	return &MockGateway{
		secret:    secret,
		orders:    map[string]*Order{},
		payments:  map[string]*Payment{},
		refunds:   map[string]*Refund{},
		idem:      map[string]string{},
		log:       log.With(zap.String("gateway", "mock")),
		available: true,
	}
}

// FailWith makes every network operation return err until called with nil.
func (g *MockGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

// SetAvailable toggles IsAvailable, simulating missing credentials.
func (g *MockGateway) SetAvailable(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = ok
}

func (g *MockGateway) IsAvailable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *MockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	if _, err := ToMinor(req.Amount); err != nil {
		return nil, err
	}
	if id, ok := g.idem["order:"+req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		o := *g.orders[id]
		return &o, nil
	}

	o := &Order{
		ID:        g.nextID("order"),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     copyNotes(req.Notes),
		CreatedAt: time.Now().UTC(),
	}
	g.orders[o.ID] = o
	if req.IdempotencyKey != "" {
		g.idem["order:"+req.IdempotencyKey] = o.ID
	}
	g.log.Info("mock order created", zap.String("order_id", o.ID))
	out := *o
	return &out, nil
}

// Pay simulates the customer completing checkout for an order. It returns
// the payment together with the signature the client would receive.
func (g *MockGateway) Pay(orderID string, status string) (*Payment, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, "", &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "order not found"}
	}
	p := &Payment{
		ID:        g.nextID("pay"),
		OrderID:   o.ID,
		Amount:    o.Amount,
		Currency:  o.Currency,
		Status:    status,
		Method:    "upi",
		Notes:     copyNotes(o.Notes),
		CreatedAt: time.Now().UTC(),
	}
	if status == PaymentFailed {
		p.ErrorReason = "payment declined"
	}
	if status == PaymentCaptured {
		o.AmountPaid = o.Amount
		o.Status = "paid"
	}
	g.payments[p.ID] = p
	out := *p
	return &out, g.sign(PaymentSignaturePayload(o.ID, p.ID)), nil
}

// SignWebhook signs a body the way the provider signs notifications.
func (g *MockGateway) SignWebhook(body []byte, secret string) string {
	return Sign(body, secret)
}

func (g *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyPayment(orderID, paymentID, signature, g.secret)
}

func (g *MockGateway) Capture(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "payment not found"}
	}
	if p.Amount != amount {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "capture amount mismatch"}
	}
	p.Status = PaymentCaptured
	out := *p
	return &out, nil
}

func (g *MockGateway) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	if id, ok := g.idem["refund:"+req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		r := *g.refunds[id]
		return &r, nil
	}
	p, ok := g.payments[req.PaymentID]
	if !ok || p.Status == PaymentFailed {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "payment not refundable"}
	}
	amount := p.Amount - p.AmountRefunded
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 || amount > p.Amount-p.AmountRefunded {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "refund amount exceeds captured amount"}
	}

	p.AmountRefunded += amount
	if p.AmountRefunded == p.Amount {
		p.Status = PaymentRefunded
	}
	r := &Refund{
		ID:        g.nextID("rfnd"),
		PaymentID: p.ID,
		Amount:    amount,
		Currency:  p.Currency,
		Status:    "processed",
		Notes:     copyNotes(req.Notes),
		CreatedAt: time.Now().UTC(),
	}
	g.refunds[r.ID] = r
	if req.IdempotencyKey != "" {
		g.idem["refund:"+req.IdempotencyKey] = r.ID
	}
	out := *r
	return &out, nil
}

func (g *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "payment not found"}
	}
	out := *p
	return &out, nil
}

func (g *MockGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	o, ok := g.orders[orderID]
	if !ok {
		return nil, &APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "order not found"}
	}
	out := *o
	return &out, nil
}

func (g *MockGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	var out []Payment
	for _, p := range g.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (g *MockGateway) ValidateWebhookSignature(body []byte, signature, secret string) bool {
	return verifyWebhook(body, signature, secret)
}

func (g *MockGateway) check(ctx context.Context) error {
	if !g.available {
		return ErrPaymentUnavailable
	}
	if g.failWith != nil {
		return g.failWith
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	return nil
}

func (g *MockGateway) sign(payload []byte) string {
	return Sign(payload, g.secret)
}

func (g *MockGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_mock%08d", prefix, g.seq)
}

func copyNotes(n Notes) Notes {
	out := make(Notes, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}
