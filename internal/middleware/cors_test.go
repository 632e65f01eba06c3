package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripplanner/api/internal/middleware"
)

// trivialHandler always answers 200.
var trivialHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

const webOrigin = "http://localhost:5173"

func TestCORSHandler_SimpleRequests(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"web client", webOrigin, webOrigin},
		{"unknown origin", "http://evil.example.com", ""},
		// The response itself still goes out; the browser is what blocks it.
		{"no origin", "", ""},
	}
	h := middleware.NewCORSHandler([]string{webOrigin})(trivialHandler)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSHandler_CredentialsAllowed(t *testing.T) {
	h := middleware.NewCORSHandler([]string{webOrigin})(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/protected/profile", nil)
	req.Header.Set("Origin", webOrigin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

// Browsers send Access-Control-Request-Headers in lower case, which is also
// how rs/cors compares them.
func TestCORSHandler_Preflight(t *testing.T) {
	tests := []struct {
		method  string
		headers string
	}{
		{http.MethodPost, "content-type"},
		{http.MethodPut, "authorization,content-type"},
		{http.MethodDelete, "authorization"},
	}
	h := middleware.NewCORSHandler([]string{webOrigin})(trivialHandler)

	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/trips/1", nil)
			req.Header.Set("Origin", webOrigin)
			req.Header.Set("Access-Control-Request-Method", tc.method)
			req.Header.Set("Access-Control-Request-Headers", tc.headers)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Less(t, rec.Code, 300, "preflight should succeed")
			assert.Equal(t, webOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.method, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestCORSHandler_PreflightRejectsPatch(t *testing.T) {
	h := middleware.NewCORSHandler([]string{webOrigin})(trivialHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/trips/1", nil)
	req.Header.Set("Origin", webOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
