// internal/repository/postgres/payment_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paywall-service/internal/domain/payment"
	xerrors "paywall-service/internal/pkg/errors"
)

const paymentColumns = `
	id, user_id, provider, provider_order_id, provider_payment_id, receipt,
	amount_paise, currency, status, plan_type, plan_duration, scope_id, blog_id,
	created_at, updated_at`

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.Provider, &p.ProviderOrderID, &p.ProviderPaymentID, &p.Receipt,
		&p.AmountPaise, &p.Currency, &p.Status, &p.PlanType, &p.PlanDuration, &p.ScopeID, &p.BlogID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment and fills in its generated fields.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			user_id, provider, provider_order_id, provider_payment_id, receipt,
			amount_paise, currency, status, plan_type, plan_duration, scope_id, blog_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRow(
		ctx, query,
		p.UserID, p.Provider, p.ProviderOrderID, p.ProviderPaymentID, p.Receipt,
		p.AmountPaise, p.Currency, p.Status, p.PlanType, p.PlanDuration, p.ScopeID, p.BlogID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translate(err, "create payment")
	}
	return nil
}

// FindByID retrieves a payment by its internal id
func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "find payment")
	}
	return p, nil
}

// FindByProviderOrderID retrieves a payment by the gateway's order id
func (r *PaymentRepository) FindByProviderOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_order_id = $1`

	p, err := scanPayment(r.db.conn(ctx).QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, translate(err, "find payment by order")
	}
	return p, nil
}

// TransitionStatus moves the payment for orderID from one status to another
// only if it is still in from, stamping updated_at with at. It returns the
// updated row, or ErrConflict when the payment was not in from any more.
// Concurrent callers queue on the row lock; after the first commits, the
// others see the new status and get ErrConflict.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, orderID string, from, to payment.Status, providerPaymentID *string, at time.Time) (*payment.Payment, error) {
	query := `
		UPDATE payments
		SET status = $1,
		    provider_payment_id = COALESCE($2, provider_payment_id),
		    updated_at = $3
		WHERE provider_order_id = $4 AND status = $5
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.conn(ctx).QueryRow(ctx, query, to, providerPaymentID, at, orderID, from))
	if err != nil {
		err = translate(err, "transition payment status")
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("payment %s is not %s: %w", orderID, from, xerrors.ErrConflict)
		}
		return nil, err
	}
	return p, nil
}

// List retrieves payments with filters, newest first
func (r *PaymentRepository) List(ctx context.Context, filters *payment.ListFilters) ([]payment.Payment, int64, error) {
	conditions := []string{"1 = 1"}
	args := []interface{}{}
	argPos := 1

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *filters.UserID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payments WHERE %s", whereClause)
	var total int64
	if err := r.db.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	filters.Page, filters.PageSize = pageBounds(filters.Page, filters.PageSize)
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, paymentColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []payment.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, total, nil
}
