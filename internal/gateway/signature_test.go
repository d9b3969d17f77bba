package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestVerifyPaymentSignature(t *testing.T) {
	c := NewRazorpayClient(RazorpayConfig{KeyID: "rzp_test", KeySecret: "s3cret"}, zap.NewNop(), nil)
	sig := Sign(PaymentSignaturePayload("order_1", "pay_1"), "s3cret")

	assert.True(t, c.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", "not-hex"))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", ""))
	assert.False(t, c.VerifyPaymentSignature("", "pay_1", sig))
}

func TestVerifyPaymentSignatureWithoutSecret(t *testing.T) {
	c := NewRazorpayClient(RazorpayConfig{}, zap.NewNop(), nil)
	sig := Sign(PaymentSignaturePayload("order_1", "pay_1"), "")
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", sig))
}

func TestValidateWebhookSignature(t *testing.T) {
	c := NewRazorpayClient(RazorpayConfig{}, zap.NewNop(), nil)
	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign(body, "whsec")

	assert.True(t, c.ValidateWebhookSignature(body, sig, "whsec"))
	assert.False(t, c.ValidateWebhookSignature(body, sig, "other"))
	assert.False(t, c.ValidateWebhookSignature(append(body, ' '), sig, "whsec"))
	assert.False(t, c.ValidateWebhookSignature(body, sig, ""))
	assert.False(t, c.ValidateWebhookSignature(nil, sig, "whsec"))
}
