package razorpay

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway is a test double that records orders and signs like Razorpay
// with its own secrets.
type MockGateway struct {
	mu sync.Mutex

	KeySecret     string
	WebhookSecret string

	// Orders collects every order created, in order.
	Orders []Order

	// CreateOrderErr lets tests inject a gateway failure.
	CreateOrderErr error

	nextSeq int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		KeySecret:     "mock_key_secret",
		WebhookSecret: "mock_webhook_secret",
	}
}

func (m *MockGateway) KeyID() string {
	return "rzp_test_mock"
}

func (m *MockGateway) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateOrderErr != nil {
		return nil, m.CreateOrderErr
	}

	m.nextSeq++
	o := Order{
		ID:          fmt.Sprintf("order_mock_%d", m.nextSeq),
		AmountPaise: amountPaise,
		Currency:    currency,
		Receipt:     receipt,
	}
	m.Orders = append(m.Orders, o)
	return &o, nil
}

func (m *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, m.KeySecret)
}

func (m *MockGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifyWebhookSignature(body, signature, m.WebhookSecret)
}

// Sign returns the checkout signature Razorpay would send for the pair.
func (m *MockGateway) Sign(orderID, paymentID string) string {
	return PaymentSignature(orderID, paymentID, m.KeySecret)
}

// SignWebhook returns the X-Razorpay-Signature Razorpay would send for body.
func (m *MockGateway) SignWebhook(body []byte) string {
	return WebhookSignature(body, m.WebhookSecret)
}

// OrderCount reports how many orders were created.
func (m *MockGateway) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Orders)
}
