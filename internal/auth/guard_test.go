package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cartcraft/storefront/pkg/config"
	"github.com/cartcraft/storefront/pkg/logger"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticKeyGuard_IsAuthorized(t *testing.T) {
	testCases := []struct {
		name       string
		key        string
		credential string
		want       bool
	}{
		{"matching key", "s3cret", "s3cret", true},
		{"wrong key", "s3cret", "s3cre7", false},
		{"prefix of key", "s3cret", "s3c", false},
		{"missing credential", "s3cret", "", false},
		{"unconfigured key never authorizes", "", "", false},
		{"unconfigured key rejects anything", "", "anything", false},
		{"legacy default", LegacyDefaultKey, "your-secret-api-key-here", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewStaticKeyGuard(tc.key)
			assert.Equal(t, tc.want, g.IsAuthorized(context.Background(), tc.credential))
		})
	}
}

type stubVerifier struct {
	err      error
	received string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (jwt.Token, error) {
	s.received = token
	if s.err != nil {
		return nil, s.err
	}
	return jwt.New(), nil
}

func TestJWTGuard_IsAuthorized(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		v := &stubVerifier{}
		g := NewJWTGuard(v, logger.Discard())

		assert.True(t, g.IsAuthorized(context.Background(), "header.payload.sig"))
		assert.Equal(t, "header.payload.sig", v.received)
	})

	t.Run("rejected token", func(t *testing.T) {
		g := NewJWTGuard(&stubVerifier{err: errors.New("expired")}, logger.Discard())

		assert.False(t, g.IsAuthorized(context.Background(), "header.payload.sig"))
	})

	t.Run("empty credential never reaches the verifier", func(t *testing.T) {
		v := &stubVerifier{}
		g := NewJWTGuard(v, logger.Discard())

		assert.False(t, g.IsAuthorized(context.Background(), ""))
		assert.Empty(t, v.received)
	})
}

func TestNewJWTVerifier_FailsFastWhenJWKSUnavailable(t *testing.T) {
	// given
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer idp.Close()

	// when
	_, err := NewJWTVerifier(context.Background(), config.IdP{
		JwksURL:     idp.URL + "/certs",
		Issuer:      "https://idp.example.com",
		ClientID:    "storefront-admin",
		MinInterval: time.Minute,
	})

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial JWKS fetch failed")
}
