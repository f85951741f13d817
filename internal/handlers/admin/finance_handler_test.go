package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paywall-service/internal/domain/entitlement"
	"paywall-service/internal/domain/payment"
	xerrors "paywall-service/internal/pkg/errors"
)

type stubPayments struct {
	filters *payment.ListFilters
}

func (s *stubPayments) List(_ context.Context, filters *payment.ListFilters) (*payment.ListResponse, error) {
	s.filters = filters
	return &payment.ListResponse{Payments: []payment.Payment{}}, nil
}

func (s *stubPayments) Get(_ context.Context, id int64) (*payment.Payment, error) {
	if id != 1 {
		return nil, xerrors.ErrNotFound
	}
	return &payment.Payment{ID: 1}, nil
}

type stubEntitlements struct {
	filters *entitlement.ListFilters
}

func (s *stubEntitlements) List(_ context.Context, filters *entitlement.ListFilters) (*entitlement.ListResponse, error) {
	s.filters = filters
	for _, t := range filters.Types {
		if !t.Valid() {
			return nil, xerrors.Invalid("unknown plan type %q", t)
		}
	}
	return &entitlement.ListResponse{Entitlements: []entitlement.Entitlement{}}, nil
}

func (s *stubEntitlements) Get(_ context.Context, id int64) (*entitlement.Entitlement, error) {
	if id != 1 {
		return nil, xerrors.ErrNotFound
	}
	return &entitlement.Entitlement{ID: 1}, nil
}

func setup() (*gin.Engine, *stubPayments, *stubEntitlements) {
	gin.SetMode(gin.TestMode)
	payments, ents := &stubPayments{}, &stubEntitlements{}
	h := NewFinanceHandler(payments, ents)

	r := gin.New()
	r.GET("/payments", h.ListPayments)
	r.GET("/payments/:id", h.GetPayment)
	r.GET("/entitlements", h.ListEntitlements)
	r.GET("/entitlements/:id", h.GetEntitlement)
	return r, payments, ents
}

func get(r http.Handler, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestListPayments_BindsFilters(t *testing.T) {
	r, payments, _ := setup()

	require.Equal(t, http.StatusOK, get(r, "/payments?status=SUCCESS&user_id=7&page=2&page_size=50"))
	require.NotNil(t, payments.filters.Status)
	assert.Equal(t, payment.StatusSuccess, *payments.filters.Status)
	assert.Equal(t, int64(7), *payments.filters.UserID)
	assert.Equal(t, 2, payments.filters.Page)
	assert.Equal(t, 50, payments.filters.PageSize)

	assert.Equal(t, http.StatusBadRequest, get(r, "/payments?page_size=500"))
}

func TestListEntitlements_BindsFilters(t *testing.T) {
	r, _, ents := setup()

	require.Equal(t, http.StatusOK, get(r, "/entitlements?status=active&type=PER_BLOG&type=SUBSCRIPTION_ALL"))
	assert.Equal(t, entitlement.FilterActive, ents.filters.Status)
	assert.Equal(t, []entitlement.PlanType{entitlement.PlanPerBlog, entitlement.PlanSubscriptionAll}, ents.filters.Types)

	assert.Equal(t, http.StatusBadRequest, get(r, "/entitlements?status=revoked"))
	assert.Equal(t, http.StatusBadRequest, get(r, "/entitlements?type=LIFETIME"))
}

func TestGetByID(t *testing.T) {
	r, _, _ := setup()

	assert.Equal(t, http.StatusOK, get(r, "/payments/1"))
	assert.Equal(t, http.StatusNotFound, get(r, "/payments/2"))
	assert.Equal(t, http.StatusBadRequest, get(r, "/payments/abc"))

	assert.Equal(t, http.StatusOK, get(r, "/entitlements/1"))
	assert.Equal(t, http.StatusNotFound, get(r, "/entitlements/2"))
	assert.Equal(t, http.StatusBadRequest, get(r, "/entitlements/x"))
}
