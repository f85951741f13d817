package me

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paywall-service/internal/domain/entitlement"
	"paywall-service/internal/middleware"
	"paywall-service/internal/pkg/jwt/jwttest"
)

type stubEntitlements struct {
	ents       []entitlement.Entitlement
	err        error
	gotUser    int64
	gotTarget  entitlement.Target
	accessible bool
}

func (s *stubEntitlements) ActiveEntitlements(_ context.Context, userID int64) ([]entitlement.Entitlement, error) {
	s.gotUser = userID
	return s.ents, s.err
}

func (s *stubEntitlements) HasAccess(_ context.Context, userID *int64, target entitlement.Target) (bool, error) {
	s.gotUser, s.gotTarget = *userID, target
	return s.accessible, s.err
}

func setup(t *testing.T) (*gin.Engine, *stubEntitlements, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys := jwttest.NewKeys(t)
	auth := middleware.NewAuthMiddleware(keys.Verifier)
	stub := &stubEntitlements{}
	h := NewMeHandler(stub)

	r := gin.New()
	r.GET("/me/entitlements", auth.Auth(), h.ListEntitlements)
	r.GET("/me/access", auth.Auth(), h.CheckAccess)
	return r, stub, keys.AccessToken(t, 8)
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListEntitlements(t *testing.T) {
	r, stub, token := setup(t)
	stub.ents = []entitlement.Entitlement{{ID: 1, UserID: 8, Type: entitlement.PlanSubscriptionAll}}

	w := get(r, "/me/entitlements", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(8), stub.gotUser)

	var body struct {
		Data struct {
			Entitlements []entitlement.Entitlement `json:"entitlements"`
			Count        int                       `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Count)
	assert.Equal(t, entitlement.PlanSubscriptionAll, body.Data.Entitlements[0].Type)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me/entitlements", "").Code)

	stub.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(r, "/me/entitlements", token).Code)
}

func TestCheckAccess(t *testing.T) {
	r, stub, token := setup(t)
	stub.accessible = true

	w := get(r, "/me/access?blog_id=b1&section_id=tech", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entitlement.Target{BlogID: "b1", SectionID: "tech"}, stub.gotTarget)

	var body struct {
		Data entitlement.AccessResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasAccess)

	assert.Equal(t, http.StatusBadRequest, get(r, "/me/access", token).Code)
}
