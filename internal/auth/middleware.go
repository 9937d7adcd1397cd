package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cartcraft/storefront/pkg/web"
)

// DefaultHeader carries the shared admin secret.
const DefaultHeader = "x-api-key"

// UnauthorizedMessage is the body message of every rejected request.
const UnauthorizedMessage = "Unauthorized - Invalid API key"

type credentialKey struct{}

// WithCredential stores the authorized credential so it can be forwarded downstream.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFrom returns the credential that authorized the current request.
func CredentialFrom(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(credentialKey{}).(string)
	return c, ok && c != ""
}

// RequireCredential rejects requests whose credential the guard does not accept.
// The check runs before the handler reads the body, so a rejected request has no side effects.
// The credential is read from header, falling back to an Authorization bearer token.
func RequireCredential(guard Guard, header string, logger *slog.Logger) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := credentialFromRequest(r, header)
			if !guard.IsAuthorized(r.Context(), credential) {
				logger.WarnContext(r.Context(), "Rejected unauthorized request",
					"method", r.Method,
					"path", r.URL.Path,
					"credential_present", credential != "",
				)
				web.RespondError(w, logger, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), credential)))
		})
	}
}

func credentialFromRequest(r *http.Request, header string) string {
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}
