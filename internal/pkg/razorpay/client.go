// Package razorpay talks to the Razorpay orders API and checks the
// signatures Razorpay puts on checkout callbacks and webhooks.
package razorpay

import (
	"context"
	"fmt"

	xerrors "paywall-service/internal/pkg/errors"

	"github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Order is the part of a Razorpay order this service keeps.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
}

type Client struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.WebhookSecret == "" {
		logger.Warn("razorpay webhook secret is empty, webhooks will be rejected")
	}
	return &Client{
		client:        razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// KeyID is the public key the browser checkout is opened with.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order for amount paise. Any failure, including a
// response without an order id, is reported as ErrUpstream.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}

	resp, err := c.client.Order.Create(data, nil)
	if err != nil {
		c.logger.Error("razorpay order creation failed",
			zap.String("receipt", receipt),
			zap.Int64("amount_paise", amountPaise),
			zap.Error(err))
		return nil, fmt.Errorf("create razorpay order: %v: %w", err, xerrors.ErrUpstream)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response has no id: %w", xerrors.ErrUpstream)
	}

	c.logger.Info("razorpay order created",
		zap.String("order_id", id),
		zap.String("receipt", receipt))

	return &Order{ID: id, AmountPaise: amountPaise, Currency: currency, Receipt: receipt}, nil
}

func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, c.keySecret)
}

func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifyWebhookSignature(body, signature, c.webhookSecret)
}
