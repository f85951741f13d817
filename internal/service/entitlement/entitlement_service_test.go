package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	rediscache "paywall-service/internal/cache"
	"paywall-service/internal/domain/entitlement"
	xerrors "paywall-service/internal/pkg/errors"
)

type fakeRepo struct {
	mu        sync.Mutex
	ents      []entitlement.Entitlement
	findCalls int
	findErr   error

	// afterFind runs once, after FindByUser has read its result.
	afterFind func()
}

func (f *fakeRepo) Create(_ context.Context, p entitlement.GrantParams) (*entitlement.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.ents {
		if e.PaymentID == p.PaymentID {
			return nil, xerrors.ErrConflict
		}
	}
	e := entitlement.Entitlement{
		ID: int64(len(f.ents) + 1), UserID: p.UserID, Type: p.Type,
		ScopeID: p.Scope.ScopeID, BlogID: p.Scope.BlogID,
		StartAt: p.StartAt, EndAt: p.EndAt, PaymentID: p.PaymentID,
	}
	f.ents = append(f.ents, e)
	return &e, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id int64) (*entitlement.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.ents {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeRepo) FindByUser(_ context.Context, userID int64) ([]entitlement.Entitlement, error) {
	f.mu.Lock()
	f.findCalls++
	if f.findErr != nil {
		f.mu.Unlock()
		return nil, f.findErr
	}
	out := []entitlement.Entitlement{}
	for _, e := range f.ents {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	hook := f.afterFind
	f.afterFind = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

func (f *fakeRepo) List(_ context.Context, filters *entitlement.ListFilters, now time.Time) ([]entitlement.Entitlement, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entitlement.Entitlement{}
	for _, e := range f.ents {
		switch filters.Status {
		case entitlement.FilterActive:
			if !e.IsActive(now) {
				continue
			}
		case entitlement.FilterExpired:
			if e.IsActive(now) {
				continue
			}
		}
		out = append(out, e)
	}
	filters.Page, filters.PageSize = 1, 20
	return out, int64(len(out)), nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[int64][]entitlement.Entitlement
	gens    map[int64]int64
	getErr  error

	invalidateErrs  int
	invalidateCalls int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[int64][]entitlement.Entitlement{}, gens: map[int64]int64{}}
}

func (c *mapCache) Get(_ context.Context, userID int64) ([]entitlement.Entitlement, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	ents, ok := c.entries[userID]
	return ents, ok, nil
}

func (c *mapCache) Generation(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *mapCache) SetIfGeneration(_ context.Context, userID, gen int64, ents []entitlement.Entitlement) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return false, nil
	}
	c.entries[userID] = ents
	return true, nil
}

func (c *mapCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateCalls++
	if c.invalidateErrs > 0 {
		c.invalidateErrs--
		return errors.New("redis timeout")
	}
	c.gens[userID]++
	delete(c.entries, userID)
	return nil
}

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestService(repo *fakeRepo, cache Cache, now *time.Time) *EntitlementService {
	return NewEntitlementService(repo, cache, zap.NewNop(), WithClock(func() time.Time { return *now }))
}

func seed(repo *fakeRepo, ents ...entitlement.Entitlement) {
	for i := range ents {
		ents[i].ID = int64(len(repo.ents) + 1)
		if ents[i].PaymentID == 0 {
			ents[i].PaymentID = 100 + ents[i].ID
		}
		repo.ents = append(repo.ents, ents[i])
	}
}

func TestActiveEntitlements_FiltersExpired(t *testing.T) {
	repo := &fakeRepo{}
	now := t0
	seed(repo,
		entitlement.Entitlement{UserID: 1, Type: entitlement.PlanPerBlog, BlogID: ptr("b1"), StartAt: t0.AddDate(-1, 0, 0)},
		entitlement.Entitlement{UserID: 1, Type: entitlement.PlanSubscriptionSection, ScopeID: ptr("tech"),
			StartAt: t0.AddDate(0, -1, 0), EndAt: ptr(t0.Add(time.Hour))},
		entitlement.Entitlement{UserID: 1, Type: entitlement.PlanSubscriptionAll,
			StartAt: t0.AddDate(0, -2, 0), EndAt: ptr(t0.AddDate(0, -1, 0))},
		entitlement.Entitlement{UserID: 2, Type: entitlement.PlanSubscriptionAll,
			StartAt: t0, EndAt: ptr(t0.AddDate(0, 1, 0))},
	)
	svc := newTestService(repo, nil, &now)

	active, err := svc.ActiveEntitlements(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, entitlement.PlanPerBlog, active[0].Type)
	assert.Equal(t, entitlement.PlanSubscriptionSection, active[1].Type)

	// An entitlement ending exactly now is no longer active.
	now = t0.Add(time.Hour)
	active, err = svc.ActiveEntitlements(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, entitlement.PlanPerBlog, active[0].Type)
}

func TestActiveEntitlements_ReadsThroughCache(t *testing.T) {
	repo := &fakeRepo{}
	cache := newMapCache()
	now := t0
	seed(repo, entitlement.Entitlement{UserID: 1, Type: entitlement.PlanSubscriptionSection,
		ScopeID: ptr("tech"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))})
	svc := newTestService(repo, cache, &now)
	ctx := context.Background()

	_, err := svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)
	_, err = svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)

	// Expiry is evaluated after the cache, so a cached entry never keeps
	// an expired entitlement alive.
	now = t0.Add(2 * time.Hour)
	active, err := svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 1, repo.findCalls)

	svc.Invalidate(ctx, 1)
	_, err = svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

func TestHasAccess_ReaderStartedBeforeGrantDoesNotHideIt(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &fakeRepo{}
	now := t0
	svc := newTestService(repo, rediscache.NewEntitlementCache(client, 10*time.Minute), &now)
	ctx := context.Background()

	// Reader A loads the empty pre-grant list, then stalls before caching it.
	loaded := make(chan struct{})
	resume := make(chan struct{})
	repo.afterFind = func() {
		close(loaded)
		<-resume
	}
	readerDone := make(chan error, 1)
	go func() {
		active, err := svc.ActiveEntitlements(ctx, 1)
		if err == nil && len(active) != 0 {
			err = fmt.Errorf("reader saw %d entitlements before the grant", len(active))
		}
		readerDone <- err
	}()
	<-loaded

	// The payment commits its grant and invalidates while A is stalled.
	_, err := svc.Grant(ctx, entitlement.GrantParams{
		UserID: 1, Type: entitlement.PlanPerBlog, Scope: entitlement.Scope{BlogID: ptr("X")},
		PaymentID: 10, StartAt: t0,
	})
	require.NoError(t, err)
	svc.Invalidate(ctx, 1)

	close(resume)
	require.NoError(t, <-readerDone)

	ok, err := svc.HasAccess(ctx, ptr(int64(1)), entitlement.Target{BlogID: "X"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, repo.calls())

	// The fresh list is cached from here on.
	ok, err = svc.HasAccess(ctx, ptr(int64(1)), entitlement.Target{BlogID: "X"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, repo.calls())
}

func TestInvalidate_RetriesTransientFailures(t *testing.T) {
	repo := &fakeRepo{}
	cache := newMapCache()
	now := t0
	svc := newTestService(repo, cache, &now)
	ctx := context.Background()

	_, err := svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)

	cache.invalidateErrs = invalidateAttempts - 1
	svc.Invalidate(ctx, 1)
	assert.Equal(t, invalidateAttempts, cache.invalidateCalls)

	_, err = svc.ActiveEntitlements(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

func TestInvalidate_GivesUpAfterAttempts(t *testing.T) {
	cache := newMapCache()
	cache.invalidateErrs = invalidateAttempts + 5
	now := t0
	svc := newTestService(&fakeRepo{}, cache, &now)

	svc.Invalidate(context.Background(), 1)
	assert.Equal(t, invalidateAttempts, cache.invalidateCalls)
}

func TestActiveEntitlements_CacheFailureFallsBack(t *testing.T) {
	repo := &fakeRepo{}
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	now := t0
	seed(repo, entitlement.Entitlement{UserID: 1, Type: entitlement.PlanPerBlog, BlogID: ptr("b1"), StartAt: t0})
	svc := newTestService(repo, cache, &now)

	active, err := svc.ActiveEntitlements(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestActiveEntitlements_RepoError(t *testing.T) {
	repo := &fakeRepo{findErr: errors.New("db down")}
	now := t0
	svc := newTestService(repo, nil, &now)

	_, err := svc.ActiveEntitlements(context.Background(), 1)
	assert.Error(t, err)
}

func TestHasAccess(t *testing.T) {
	now := t0
	target := entitlement.Target{BlogID: "b1", SectionID: "tech", SubsectionID: "go"}

	tests := []struct {
		name string
		ents []entitlement.Entitlement
		user *int64
		tgt  entitlement.Target
		want bool
	}{
		{name: "anonymous", user: nil, tgt: target, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionAll, StartAt: t0}}},
		{name: "no entitlements", user: ptr(int64(1)), tgt: target, want: false},
		{name: "all access", user: ptr(int64(1)), tgt: target, want: true,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionAll, StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "all access covers post without taxonomy", user: ptr(int64(1)), tgt: entitlement.Target{BlogID: "b9"}, want: true,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionAll, StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "matching section", user: ptr(int64(1)), tgt: target, want: true,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionSection, ScopeID: ptr("tech"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "other section", user: ptr(int64(1)), tgt: target, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionSection, ScopeID: ptr("food"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "section plan on post without section", user: ptr(int64(1)), tgt: entitlement.Target{BlogID: "b1"}, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionSection, ScopeID: ptr("tech"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "matching subsection", user: ptr(int64(1)), tgt: target, want: true,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionSubsection, ScopeID: ptr("go"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "subsection id does not open a section", user: ptr(int64(1)), tgt: entitlement.Target{BlogID: "b1", SectionID: "go"}, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionSubsection, ScopeID: ptr("go"), StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
		{name: "per blog", user: ptr(int64(1)), tgt: target, want: true,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanPerBlog, BlogID: ptr("b1"), StartAt: t0.AddDate(-5, 0, 0)}}},
		{name: "per blog for another post", user: ptr(int64(1)), tgt: target, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanPerBlog, BlogID: ptr("b2"), StartAt: t0}}},
		{name: "expired all access", user: ptr(int64(1)), tgt: target, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionAll, StartAt: t0.AddDate(0, -1, 0), EndAt: ptr(t0)}}},
		{name: "another user's entitlement", user: ptr(int64(2)), tgt: target, want: false,
			ents: []entitlement.Entitlement{{UserID: 1, Type: entitlement.PlanSubscriptionAll, StartAt: t0, EndAt: ptr(t0.Add(time.Hour))}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			seed(repo, tt.ents...)
			svc := newTestService(repo, nil, &now)

			got, err := svc.HasAccess(context.Background(), tt.user, tt.tgt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasAccess_AnonymousSkipsStore(t *testing.T) {
	repo := &fakeRepo{}
	now := t0
	svc := newTestService(repo, nil, &now)

	ok, err := svc.HasAccess(context.Background(), nil, entitlement.Target{BlogID: "b1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, repo.findCalls)
}

func TestGrant(t *testing.T) {
	repo := &fakeRepo{}
	now := t0
	svc := newTestService(repo, nil, &now)
	ctx := context.Background()

	ent, err := svc.Grant(ctx, entitlement.GrantParams{
		UserID: 1, Type: entitlement.PlanSubscriptionSection, Scope: entitlement.Scope{ScopeID: ptr("tech")},
		PaymentID: 10, StartAt: t0, EndAt: ptr(t0.AddDate(0, 1, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), ent.PaymentID)

	// Same payment again is refused by the store.
	_, err = svc.Grant(ctx, entitlement.GrantParams{
		UserID: 1, Type: entitlement.PlanSubscriptionSection, Scope: entitlement.Scope{ScopeID: ptr("tech")},
		PaymentID: 10, StartAt: t0, EndAt: ptr(t0.AddDate(0, 1, 0)),
	})
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	// A second purchase of the same scope is a separate record, never a merge.
	_, err = svc.Grant(ctx, entitlement.GrantParams{
		UserID: 1, Type: entitlement.PlanSubscriptionSection, Scope: entitlement.Scope{ScopeID: ptr("tech")},
		PaymentID: 11, StartAt: t0, EndAt: ptr(t0.AddDate(0, 3, 0)),
	})
	require.NoError(t, err)
	assert.Len(t, repo.ents, 2)
}

func TestGrant_RejectsMalformed(t *testing.T) {
	repo := &fakeRepo{}
	now := t0
	svc := newTestService(repo, nil, &now)
	end := ptr(t0.AddDate(0, 1, 0))

	bad := []entitlement.GrantParams{
		{UserID: 0, Type: entitlement.PlanSubscriptionAll, PaymentID: 1, StartAt: t0, EndAt: end},
		{UserID: 1, Type: entitlement.PlanSubscriptionAll, PaymentID: 0, StartAt: t0, EndAt: end},
		{UserID: 1, Type: "GOLD", PaymentID: 1, StartAt: t0, EndAt: end},
		{UserID: 1, Type: entitlement.PlanPerBlog, PaymentID: 1, StartAt: t0},
		{UserID: 1, Type: entitlement.PlanPerBlog, Scope: entitlement.Scope{BlogID: ptr("b1")}, PaymentID: 1, StartAt: t0, EndAt: end},
		{UserID: 1, Type: entitlement.PlanSubscriptionSection, Scope: entitlement.Scope{ScopeID: ptr("tech")}, PaymentID: 1, StartAt: t0},
		{UserID: 1, Type: entitlement.PlanSubscriptionAll, Scope: entitlement.Scope{ScopeID: ptr("tech")}, PaymentID: 1, StartAt: t0, EndAt: end},
		{UserID: 1, Type: entitlement.PlanSubscriptionAll, PaymentID: 1, StartAt: t0, EndAt: ptr(t0)},
	}

	for i, p := range bad {
		_, err := svc.Grant(context.Background(), p)
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput, "case %d", i)
	}
	assert.Empty(t, repo.ents)
}

func TestListAndGet(t *testing.T) {
	repo := &fakeRepo{}
	now := t0
	seed(repo,
		entitlement.Entitlement{UserID: 1, Type: entitlement.PlanPerBlog, BlogID: ptr("b1"), StartAt: t0},
		entitlement.Entitlement{UserID: 2, Type: entitlement.PlanSubscriptionAll, StartAt: t0.AddDate(0, -2, 0), EndAt: ptr(t0.AddDate(0, -1, 0))},
	)
	svc := newTestService(repo, nil, &now)
	ctx := context.Background()

	resp, err := svc.List(ctx, &entitlement.ListFilters{Status: entitlement.FilterExpired})
	require.NoError(t, err)
	require.Len(t, resp.Entitlements, 1)
	assert.Equal(t, int64(2), resp.Entitlements[0].UserID)
	assert.Equal(t, 1, resp.TotalPages)

	resp, err = svc.List(ctx, &entitlement.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)

	_, err = svc.List(ctx, &entitlement.ListFilters{Types: []entitlement.PlanType{"GOLD"}})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	ent, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b1", *ent.BlogID)

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
