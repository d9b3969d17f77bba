package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignaturePayload is the message the provider signs after checkout.
func PaymentSignaturePayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

func verify(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func verifyPayment(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return verify(PaymentSignaturePayload(orderID, paymentID), signature, secret)
}

func verifyWebhook(body []byte, signature, secret string) bool {
	if len(body) == 0 {
		return false
	}
	return verify(body, signature, secret)
}
