package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRequestIDInjector(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		expectID func(t *testing.T, id string)
	}{
		{
			name:   "incoming header is kept",
			header: "req-123",
			expectID: func(t *testing.T, id string) {
				assert.Equal(t, "req-123", id)
			},
		},
		{
			name:   "generated when missing",
			header: "",
			expectID: func(t *testing.T, id string) {
				assert.Len(t, id, 36)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var chiID string
			handler := RequestIDInjector(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chiID = middleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(middleware.RequestIDHeader, tc.header)
			}
			rr := httptest.NewRecorder()

			// when
			handler.ServeHTTP(rr, req)

			// then
			tc.expectID(t, chiID)
			assert.Equal(t, chiID, rr.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	testCases := []struct {
		name          string
		path          string
		status        int
		expectedLevel string
	}{
		{"success is info", "/products", http.StatusOK, "INFO"},
		{"client error is warn", "/products/missing", http.StatusNotFound, "WARN"},
		{"server error is error", "/products", http.StatusInternalServerError, "ERROR"},
		{"quiet path is not logged", "/healthz", http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := StructuredLogger(log, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))

			// when
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			// then
			if tc.expectedLevel == "" {
				assert.Zero(t, buf.Len())
				return
			}
			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, tc.expectedLevel, record["level"])
			assert.Equal(t, tc.path, record["path"])
			assert.EqualValues(t, tc.status, record["status"])
		})
	}
}

func TestRecoverer_AbortHandlerPropagates(t *testing.T) {
	handler := Recoverer(discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoverer(t *testing.T) {
	// given
	handler := Recoverer(discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	// when
	require.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	// then
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rr.Body.String())
}

func TestRequireQuery(t *testing.T) {
	// given
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/revalidate", nil)

	// when
	_, ok := RequireQuery(rr, req, discardLogger, "path")

	// then
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Missing path parameter"}`, rr.Body.String())
}
