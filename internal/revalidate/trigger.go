package revalidate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	perrors "github.com/cartcraft/storefront/internal/errors"
	"github.com/cartcraft/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Trigger asks the page layer to drop a path, authenticating with the caller's credential.
type Trigger interface {
	Revalidate(ctx context.Context, pagePath, credential string) error
}

// DirectTrigger invalidates the page cache in process. The credential has already been
// checked by the mutation endpoint, so it is not used again.
type DirectTrigger struct {
	pages PageCache
}

func NewDirectTrigger(pages PageCache) *DirectTrigger {
	return &DirectTrigger{pages: pages}
}

func (t *DirectTrigger) Revalidate(ctx context.Context, pagePath, _ string) error {
	return t.pages.Invalidate(ctx, pagePath)
}

// StatusError is returned when the invalidation endpoint answers with a non 2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalidation endpoint returned %d %s", e.Code, http.StatusText(e.Code))
}

// Unwrap lets callers match a rejected forwarded credential with errors.Is(err, ErrUnauthorized).
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return perrors.ErrUnauthorized
	}
	return nil
}

// HTTPTrigger calls the invalidation endpoint over HTTP, forwarding the credential.
// Calls go through a circuit breaker so an unavailable endpoint is not hammered after every mutation.
type HTTPTrigger struct {
	client  *http.Client
	baseURL string
	header  string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewHTTPTrigger(baseURL, header string, client *http.Client, cfg config.CircuitBreakerConfig) *HTTPTrigger {
	instrumented := &http.Client{}
	if client != nil {
		*instrumented = *client
	}
	instrumented.Transport = otelhttp.NewTransport(transportOrDefault(instrumented.Transport))
	return &HTTPTrigger{
		client:  instrumented,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  header,
		breaker: newBreaker("revalidate-callback", cfg),
	}
}

func (t *HTTPTrigger) Revalidate(ctx context.Context, pagePath, credential string) error {
	_, err := t.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, t.post(ctx, pagePath, credential)
	})
	if err != nil {
		return fmt.Errorf("revalidation callback for %s failed: %w", pagePath, err)
	}
	return nil
}

func (t *HTTPTrigger) post(ctx context.Context, pagePath, credential string) error {
	endpoint := t.baseURL + "/revalidate?" + url.Values{"path": {pagePath}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(t.header, credential)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func newBreaker(name string, cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			return counts.Requests >= cfg.MinRequests && counts.Requests > 0 &&
				float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent)
		},
		// client side rejections (bad credential, bad path) say nothing about endpoint health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < http.StatusInternalServerError
			}
			return false
		},
	})
}

func transportOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
