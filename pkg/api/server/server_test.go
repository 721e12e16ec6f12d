package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity_valuation/pkg/core/store"
)

func TestHealth(t *testing.T) {
	runs, err := store.NewRunStore(nil, t.TempDir())
	require.NoError(t, err)
	s := New(Config{Port: 0, Log: zerolog.Nop(), Runs: runs, DevMode: true})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "file", body["run_store"])
}

func TestRoutesMounted(t *testing.T) {
	s := New(Config{Log: zerolog.Nop(), DevMode: true})

	testCases := []struct {
		method string
		path   string
		name   string
	}{
		{"POST", "/api/valuation/wacc", "WACC"},
		{"POST", "/api/valuation/dcf", "DCF"},
		{"POST", "/api/valuation/reverse-dcf", "ReverseDCF"},
		{"POST", "/api/valuation/sensitivity", "Sensitivity"},
		{"POST", "/api/valuation/assumptions", "Assumptions"},
		{"GET", "/api/valuation/runs", "ListRuns"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
			assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s %s should exist", tc.method, tc.path)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := New(Config{Log: zerolog.Nop(), DevMode: true})

	req := httptest.NewRequest(http.MethodOptions, "/api/valuation/dcf", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
