// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
)

// Config locates the identity service's public key. Tokens are minted there;
// this service only verifies them.
type Config struct {
	PubPath  string `env:"PUBLIC_KEY_PATH" envDefault:"/app/secrets/jwt_public.pem"`
	Issuer   string `env:"ISSUER" envDefault:"blog-identity"`
	Audience string `env:"AUDIENCE" envDefault:"blog-readers"`
}

func LoadVerifier(cfg Config) (*Verifier, error) {
	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}
	return NewVerifier(pub, cfg.Issuer, cfg.Audience), nil
}
