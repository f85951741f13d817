// Package jwttest mints access tokens the way the identity service does, for tests.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"strconv"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"paywall-service/internal/pkg/jwt"
)

const (
	Issuer   = "test-identity"
	Audience = "test-readers"
)

// Keys is a throwaway signing key and a verifier that trusts it.
type Keys struct {
	Private  *rsa.PrivateKey
	Verifier *jwt.Verifier
}

func NewKeys(t testing.TB) *Keys {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Keys{
		Private:  priv,
		Verifier: jwt.NewVerifier(&priv.PublicKey, Issuer, Audience),
	}
}

// Sign signs claims as-is.
func (k *Keys) Sign(t testing.TB, claims *jwt.Claims) string {
	t.Helper()
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims).SignedString(k.Private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// AccessToken returns a valid one-hour access token for userID.
func (k *Keys) AccessToken(t testing.TB, userID int64, roles ...string) string {
	t.Helper()
	now := time.Now()
	return k.Sign(t, &jwt.Claims{
		UserID:         userID,
		Roles:          roles,
		SessionPurpose: jwt.PurposeAccess,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  []string{Audience},
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	})
}
