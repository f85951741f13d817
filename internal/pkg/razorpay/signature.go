package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PaymentSignature is what Razorpay sends back from checkout:
// hex(HMAC_SHA256(order_id + "|" + payment_id, key_secret)).
func PaymentSignature(orderID, paymentID, keySecret string) string {
	return sign([]byte(orderID+"|"+paymentID), keySecret)
}

// WebhookSignature is the X-Razorpay-Signature of a webhook body.
func WebhookSignature(body []byte, webhookSecret string) string {
	return sign(body, webhookSecret)
}

func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return verify([]byte(orderID+"|"+paymentID), signature, keySecret)
}

func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return verify(body, signature, webhookSecret)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// verify never accepts anything when the secret is unset.
func verify(payload []byte, signature, secret string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" || secret == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}
