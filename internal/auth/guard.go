// Package auth decides whether a caller may mutate the catalog or invalidate pages.
package auth

import (
	"context"
	"crypto/subtle"
)

// LegacyDefaultKey is the shared secret historically used when no key was configured.
// It is only honoured when explicitly enabled in configuration.
const LegacyDefaultKey = "your-secret-api-key-here"

// Guard authorizes a presented credential. Implementations must be safe for concurrent use
// and must never authorize an empty credential.
type Guard interface {
	IsAuthorized(ctx context.Context, credential string) bool
}

// StaticKeyGuard compares the credential with one configured shared secret.
type StaticKeyGuard struct {
	key []byte
}

var _ Guard = (*StaticKeyGuard)(nil)

// NewStaticKeyGuard returns a guard for key. An empty key authorizes nobody.
func NewStaticKeyGuard(key string) *StaticKeyGuard {
	return &StaticKeyGuard{key: []byte(key)}
}

func (g *StaticKeyGuard) IsAuthorized(_ context.Context, credential string) bool {
	if len(g.key) == 0 || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare(g.key, []byte(credential)) == 1
}
