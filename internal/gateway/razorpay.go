package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketplace-booking/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const DefaultRazorpayBaseURL = "https://api.razorpay.com/v1"

type RazorpayConfig struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
}

// RazorpayClient talks to the provider's REST API. Every call is bounded by
// the configured timeout and passes through a circuit breaker; reads are
// retried with exponential backoff.
type RazorpayClient struct {
	cfg        RazorpayConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewRazorpayClient(cfg RazorpayConfig, log *zap.Logger, m *metrics.Metrics) *RazorpayClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRazorpayBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.With(zap.String("gateway", "razorpay"))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrCommunication)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &RazorpayClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		breaker:    breaker,
		log:        log,
		metrics:    m,
	}
}

func (c *RazorpayClient) IsAvailable() bool {
	return c.cfg.KeyID != "" && c.cfg.KeySecret != ""
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	amount, err := ToMinor(req.Amount)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"amount":   amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}
	var out razorpayOrder
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", body, req.IdempotencyKey, &out); err != nil {
		return nil, err
	}
	c.log.Info("order created", zap.String("order_id", out.ID), zap.String("receipt", req.Receipt))
	return out.toOrder()
}

func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyPayment(orderID, paymentID, signature, c.cfg.KeySecret)
}

func (c *RazorpayClient) Capture(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error) {
	minor, err := ToMinor(amount)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"amount": minor, "currency": currency}
	var out razorpayPayment
	if err := c.do(ctx, "capture", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/capture", body, "", &out); err != nil {
		return nil, err
	}
	return out.toPayment()
}

func (c *RazorpayClient) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	body := map[string]any{"notes": req.Notes}
	if req.Amount != nil {
		minor, err := ToMinor(*req.Amount)
		if err != nil {
			return nil, err
		}
		body["amount"] = minor
	}
	var out razorpayRefund
	path := "/payments/" + url.PathEscape(req.PaymentID) + "/refund"
	if err := c.do(ctx, "refund", http.MethodPost, path, body, req.IdempotencyKey, &out); err != nil {
		return nil, err
	}
	c.log.Info("refund created", zap.String("refund_id", out.ID), zap.String("payment_id", req.PaymentID))
	return out.toRefund()
}

func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out razorpayPayment
	if err := c.get(ctx, "fetch_payment", "/payments/"+url.PathEscape(paymentID), &out); err != nil {
		return nil, err
	}
	return out.toPayment()
}

func (c *RazorpayClient) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var out razorpayOrder
	if err := c.get(ctx, "fetch_order", "/orders/"+url.PathEscape(orderID), &out); err != nil {
		return nil, err
	}
	return out.toOrder()
}

func (c *RazorpayClient) FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var out struct {
		Count int               `json:"count"`
		Items []razorpayPayment `json:"items"`
	}
	if err := c.get(ctx, "fetch_order_payments", "/orders/"+url.PathEscape(orderID)+"/payments", &out); err != nil {
		return nil, err
	}
	payments := make([]Payment, 0, len(out.Items))
	for _, item := range out.Items {
		p, err := item.toPayment()
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, nil
}

func (c *RazorpayClient) ValidateWebhookSignature(body []byte, signature, secret string) bool {
	return verifyWebhook(body, signature, secret)
}

// get retries transient failures of an idempotent read.
func (c *RazorpayClient) get(ctx context.Context, op, path string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, c.cfg.MaxRetries), ctx)

	return backoff.Retry(func() error {
		err := c.do(ctx, op, http.MethodGet, path, nil, "", out)
		if err != nil && !errors.Is(err, ErrCommunication) {
			return backoff.Permanent(err)
		}
		return err
	}, retries)
}

func (c *RazorpayClient) do(ctx context.Context, op, method, path string, body any, idempotencyKey string, out any) (err error) {
	if !c.IsAvailable() {
		return ErrPaymentUnavailable
	}
	started := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveGatewayCall(op, err, started)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, body, idempotencyKey, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	if err != nil {
		c.log.Warn("gateway call failed", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (c *RazorpayClient) roundTrip(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrCommunication, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrCommunication, err)
	}
	return nil
}

type razorpayOrder struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

func (o razorpayOrder) toOrder() (*Order, error) {
	amount, err := ToMajor(o.Amount)
	if err != nil {
		return nil, fmt.Errorf("order %s amount %d: %w", o.ID, o.Amount, err)
	}
	paid, err := ToMajor(o.AmountPaid)
	if err != nil {
		return nil, fmt.Errorf("order %s amount_paid %d: %w", o.ID, o.AmountPaid, err)
	}
	return &Order{
		ID:         o.ID,
		Amount:     amount,
		AmountPaid: paid,
		Currency:   o.Currency,
		Receipt:    o.Receipt,
		Status:     o.Status,
		Notes:      o.Notes,
		CreatedAt:  unixTime(o.CreatedAt),
	}, nil
}

type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	AmountRefunded   int64  `json:"amount_refunded"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Notes            Notes  `json:"notes"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

func (p razorpayPayment) toPayment() (*Payment, error) {
	amount, err := ToMajor(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment %s amount %d: %w", p.ID, p.Amount, err)
	}
	refunded, err := ToMajor(p.AmountRefunded)
	if err != nil {
		return nil, fmt.Errorf("payment %s amount_refunded %d: %w", p.ID, p.AmountRefunded, err)
	}
	return &Payment{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         amount,
		AmountRefunded: refunded,
		Currency:       p.Currency,
		Status:         p.Status,
		Method:         p.Method,
		Notes:          p.Notes,
		ErrorReason:    p.ErrorDescription,
		CreatedAt:      unixTime(p.CreatedAt),
	}, nil
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

func (r razorpayRefund) toRefund() (*Refund, error) {
	amount, err := ToMajor(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("refund %s amount %d: %w", r.ID, r.Amount, err)
	}
	return &Refund{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    amount,
		Currency:  r.Currency,
		Status:    r.Status,
		Notes:     r.Notes,
		CreatedAt: unixTime(r.CreatedAt),
	}, nil
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
