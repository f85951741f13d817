// internal/repository/postgres/entitlement_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paywall-service/internal/domain/entitlement"

	"github.com/lib/pq"
)

const entitlementColumns = `id, user_id, type, scope_id, blog_id, start_at, end_at, payment_id, created_at`

type EntitlementRepository struct {
	db *DB
}

func NewEntitlementRepository(db *DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func scanEntitlement(row rowScanner) (*entitlement.Entitlement, error) {
	var e entitlement.Entitlement
	err := row.Scan(
		&e.ID, &e.UserID, &e.Type, &e.ScopeID, &e.BlogID,
		&e.StartAt, &e.EndAt, &e.PaymentID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an entitlement. A second entitlement for the same payment
// fails with ErrConflict.
func (r *EntitlementRepository) Create(ctx context.Context, params entitlement.GrantParams) (*entitlement.Entitlement, error) {
	query := `
		INSERT INTO entitlements (user_id, type, scope_id, blog_id, start_at, end_at, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + entitlementColumns

	e, err := scanEntitlement(r.db.conn(ctx).QueryRow(
		ctx, query,
		params.UserID, params.Type, params.Scope.ScopeID, params.Scope.BlogID,
		params.StartAt, params.EndAt, params.PaymentID,
	))
	if err != nil {
		return nil, translate(err, "create entitlement")
	}
	return e, nil
}

// FindByID retrieves an entitlement by ID
func (r *EntitlementRepository) FindByID(ctx context.Context, id int64) (*entitlement.Entitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE id = $1`

	e, err := scanEntitlement(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "find entitlement")
	}
	return e, nil
}

// FindByUser returns every entitlement the user was ever granted, oldest first.
func (r *EntitlementRepository) FindByUser(ctx context.Context, userID int64) ([]entitlement.Entitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entitlements: %w", err)
	}
	defer rows.Close()

	ents := []entitlement.Entitlement{}
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		ents = append(ents, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entitlements: %w", err)
	}
	return ents, nil
}

// List retrieves entitlements for the admin listing. Active and expired are
// evaluated against now.
func (r *EntitlementRepository) List(ctx context.Context, filters *entitlement.ListFilters, now time.Time) ([]entitlement.Entitlement, int64, error) {
	conditions := []string{"1 = 1"}
	args := []interface{}{}
	argPos := 1

	switch filters.Status {
	case entitlement.FilterActive:
		conditions = append(conditions, fmt.Sprintf("(end_at IS NULL OR end_at > $%d)", argPos))
		args = append(args, now)
		argPos++
	case entitlement.FilterExpired:
		conditions = append(conditions, fmt.Sprintf("end_at <= $%d", argPos))
		args = append(args, now)
		argPos++
	}

	if len(filters.Types) > 0 {
		types := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("type = ANY($%d)", argPos))
		args = append(args, pq.Array(types))
		argPos++
	}

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *filters.UserID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM entitlements WHERE %s", whereClause)
	var total int64
	if err := r.db.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count entitlements: %w", err)
	}

	filters.Page, filters.PageSize = pageBounds(filters.Page, filters.PageSize)
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM entitlements
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, entitlementColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	ents := []entitlement.Entitlement{}
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		ents = append(ents, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate entitlements: %w", err)
	}

	return ents, total, nil
}
