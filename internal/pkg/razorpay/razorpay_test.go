package razorpay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	xerrors "paywall-service/internal/pkg/errors"
)

func TestPaymentSignature_KnownVector(t *testing.T) {
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", PaymentSignature("order_1", "pay_1", "secret"))
	assert.NotEqual(t, PaymentSignature("order_1", "pay_1", "secret"), PaymentSignature("order_1", "pay_2", "secret"))
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := PaymentSignature("order_1", "pay_1", "secret")

	assert.True(t, VerifyPaymentSignature("order_1", "pay_1", sig, "secret"))
	assert.True(t, VerifyPaymentSignature("order_1", "pay_1", strings.ToUpper(sig), "secret"))

	assert.False(t, VerifyPaymentSignature("order_1", "pay_2", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_2", "pay_1", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", sig, "wrong"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", "not-hex", "secret"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", "", "secret"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", sig, ""))
	assert.False(t, VerifyPaymentSignature("", "", PaymentSignature("", "", "secret"), "secret"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := WebhookSignature(body, "whsec")

	assert.True(t, VerifyWebhookSignature(body, sig, "whsec"))
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "whsec"))
	assert.False(t, VerifyWebhookSignature(body, sig, ""))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"entity": "event",
		"event": "payment.captured",
		"payload": {
			"payment": {"entity": {"id": "pay_9", "order_id": "order_9", "status": "captured", "amount": 4900}}
		}
	}`)

	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCaptured, ev.Event)
	assert.Equal(t, "order_9", ev.OrderID())
	assert.Equal(t, "pay_9", ev.PaymentID())

	orderPaid := []byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_5","status":"paid"}},"payment":{"entity":{"id":"pay_5","order_id":"order_5"}}}}`)
	ev, err = ParseWebhook(orderPaid)
	require.NoError(t, err)
	assert.Equal(t, "order_5", ev.OrderID())
	assert.Equal(t, "pay_5", ev.PaymentID())

	_, err = ParseWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = ParseWebhook([]byte(`{}`))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestMockGateway(t *testing.T) {
	m := NewMockGateway()

	o, err := m.CreateOrder(context.Background(), 4900, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_mock_1", o.ID)
	assert.Equal(t, 1, m.OrderCount())
	assert.True(t, m.VerifyPaymentSignature(o.ID, "pay_1", m.Sign(o.ID, "pay_1")))

	m.CreateOrderErr = errors.New("boom")
	_, err = m.CreateOrder(context.Background(), 4900, "INR", "rcpt_2")
	assert.Error(t, err)
	assert.Equal(t, 1, m.OrderCount())
}

func TestClient_CreateOrderHonoursCancelledContext(t *testing.T) {
	c := NewClient(Config{KeyID: "rzp_test", KeySecret: "secret"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreateOrder(ctx, 4900, "INR", "rcpt_1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "rzp_test", c.KeyID())
	assert.True(t, c.VerifyPaymentSignature("o", "p", PaymentSignature("o", "p", "secret")))
}
