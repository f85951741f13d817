// internal/service/entitlement/entitlement_service.go
package entitlement

import (
	"context"
	"fmt"
	"time"

	"paywall-service/internal/domain/entitlement"
	xerrors "paywall-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, params entitlement.GrantParams) (*entitlement.Entitlement, error)
	FindByID(ctx context.Context, id int64) (*entitlement.Entitlement, error)
	FindByUser(ctx context.Context, userID int64) ([]entitlement.Entitlement, error)
	List(ctx context.Context, filters *entitlement.ListFilters, now time.Time) ([]entitlement.Entitlement, int64, error)
}

// Cache holds a user's full entitlement list. A list loaded from the
// database is written back only if no invalidation happened since the
// generation was read.
type Cache interface {
	Get(ctx context.Context, userID int64) ([]entitlement.Entitlement, bool, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	SetIfGeneration(ctx context.Context, userID, gen int64, ents []entitlement.Entitlement) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

const (
	invalidateAttempts = 3
	invalidateBackoff  = 20 * time.Millisecond
)

type EntitlementService struct {
	repo   Repository
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*EntitlementService)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *EntitlementService) { s.now = now }
}

// NewEntitlementService builds the service. cache may be nil.
func NewEntitlementService(repo Repository, cache Cache, logger *zap.Logger, opts ...Option) *EntitlementService {
	s := &EntitlementService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveEntitlements returns the user's entitlements that are active right now.
func (s *EntitlementService) ActiveEntitlements(ctx context.Context, userID int64) ([]entitlement.Entitlement, error) {
	all, err := s.userEntitlements(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active := make([]entitlement.Entitlement, 0, len(all))
	for i := range all {
		if all[i].IsActive(now) {
			active = append(active, all[i])
		}
	}
	return active, nil
}

// userEntitlements reads through the cache. Cache failures fall back to the
// database. The generation is taken before the database read so a grant that
// commits in between keeps this reader from caching the older list.
func (s *EntitlementService) userEntitlements(ctx context.Context, userID int64) ([]entitlement.Entitlement, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		ents, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("entitlement cache read failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if ok {
			return ents, nil
		}

		gen, err = s.cache.Generation(ctx, userID)
		if err != nil {
			s.logger.Warn("entitlement generation read failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			cacheable = true
		}
	}

	ents, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlements: %w", err)
	}

	if cacheable {
		stored, err := s.cache.SetIfGeneration(ctx, userID, gen, ents)
		switch {
		case err != nil:
			s.logger.Warn("entitlement cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		case !stored:
			s.logger.Debug("entitlements changed while loading, not cached", zap.Int64("user_id", userID))
		}
	}
	return ents, nil
}

// Grant inserts a new entitlement. It never merges with or extends an
// existing one. Callers run it inside the payment transaction and call
// Invalidate after commit.
func (s *EntitlementService) Grant(ctx context.Context, params entitlement.GrantParams) (*entitlement.Entitlement, error) {
	if err := validateGrant(params); err != nil {
		return nil, err
	}

	ent, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to grant entitlement: %w", err)
	}

	s.logger.Info("entitlement granted",
		zap.Int64("entitlement_id", ent.ID),
		zap.Int64("user_id", ent.UserID),
		zap.Int64("payment_id", ent.PaymentID),
		zap.String("type", string(ent.Type)))

	return ent, nil
}

func validateGrant(p entitlement.GrantParams) error {
	if p.UserID <= 0 {
		return xerrors.Invalid("grant needs a user")
	}
	if p.PaymentID <= 0 {
		return xerrors.Invalid("grant needs a payment")
	}

	var scopeID, blogID string
	if p.Scope.ScopeID != nil {
		scopeID = *p.Scope.ScopeID
	}
	if p.Scope.BlogID != nil {
		blogID = *p.Scope.BlogID
	}
	want, err := entitlement.NewScope(p.Type, scopeID, blogID)
	if err != nil {
		return err
	}
	if (want.ScopeID == nil) != (p.Scope.ScopeID == nil) || (want.BlogID == nil) != (p.Scope.BlogID == nil) {
		return xerrors.Invalid("scope does not fit %s", p.Type)
	}

	switch {
	case p.Type == entitlement.PlanPerBlog && p.EndAt != nil:
		return xerrors.Invalid("%s does not expire", p.Type)
	case p.Type.IsSubscription() && p.EndAt == nil:
		return xerrors.Invalid("%s needs an end", p.Type)
	case p.EndAt != nil && !p.EndAt.After(p.StartAt):
		return xerrors.Invalid("entitlement must end after it starts")
	}
	return nil
}

// Invalidate drops the user's cached list and retries a few times on
// failure. If every attempt fails the entry lives until its TTL.
func (s *EntitlementService) Invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}

	var err error
	for attempt := 1; attempt <= invalidateAttempts; attempt++ {
		if err = s.cache.Invalidate(ctx, userID); err == nil {
			return
		}
		if attempt == invalidateAttempts {
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Error("entitlement cache invalidation abandoned",
				zap.Int64("user_id", userID), zap.Int("attempts", attempt), zap.Error(err))
			return
		case <-time.After(time.Duration(attempt) * invalidateBackoff):
		}
	}
	s.logger.Error("entitlement cache invalidation failed",
		zap.Int64("user_id", userID), zap.Int("attempts", invalidateAttempts), zap.Error(err))
}

// HasAccess decides whether the viewer may read the whole of target.
// Anonymous viewers never have access. Entitlements are checked broadest
// first: all-access, then section, then subsection, then the single post.
func (s *EntitlementService) HasAccess(ctx context.Context, userID *int64, target entitlement.Target) (bool, error) {
	if userID == nil {
		return false, nil
	}

	active, err := s.ActiveEntitlements(ctx, *userID)
	if err != nil {
		return false, err
	}

	for _, planType := range entitlement.PlanTypes {
		for i := range active {
			if active[i].Type == planType && active[i].Covers(target) {
				return true, nil
			}
		}
	}
	return false, nil
}

// List serves the admin finance listing.
func (s *EntitlementService) List(ctx context.Context, filters *entitlement.ListFilters) (*entitlement.ListResponse, error) {
	if filters.Status == "" {
		filters.Status = entitlement.FilterAll
	}
	for _, t := range filters.Types {
		if !t.Valid() {
			return nil, xerrors.Invalid("unknown plan type %q", t)
		}
	}

	ents, total, err := s.repo.List(ctx, filters, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	return &entitlement.ListResponse{
		Entitlements: ents,
		Total:        total,
		Page:         filters.Page,
		PageSize:     filters.PageSize,
		TotalPages:   totalPages(total, filters.PageSize),
	}, nil
}

func (s *EntitlementService) Get(ctx context.Context, id int64) (*entitlement.Entitlement, error) {
	ent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return ent, nil
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
