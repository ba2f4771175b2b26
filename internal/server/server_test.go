package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newServer(t *testing.T) (*Server, *fakeSource) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "abhinaya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := &fakeSource{
		enabled: true,
		snap:    session.Snapshot{Status: session.StatusPressCalibrate},
	}
	return New(Config{Store: st, Source: src}), src
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	rec := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")

	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, m, "/api/health", "").Code, m)
	}
}

func TestServer_Routes(t *testing.T) {
	s, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"session", http.MethodGet, "/api/session", "", http.StatusOK},
		{"session is read-only", http.MethodPost, "/api/session", "", http.StatusMethodNotAllowed},
		{"calibrate", http.MethodPost, "/api/calibrate", "", http.StatusAccepted},
		{"calibrate needs POST", http.MethodGet, "/api/calibrate", "", http.StatusMethodNotAllowed},
		{"enabled read", http.MethodGet, "/api/enabled", "", http.StatusOK},
		{"enabled write", http.MethodPut, "/api/enabled", `{"enabled":false}`, http.StatusOK},
		{"enabled missing field", http.MethodPut, "/api/enabled", `{}`, http.StatusBadRequest},
		{"rounds", http.MethodGet, "/api/rounds", "", http.StatusOK},
		{"round stats", http.MethodGet, "/api/rounds/stats", "", http.StatusOK},
		{"unknown round", http.MethodGet, "/api/rounds/missing", "", http.StatusNotFound},
		{"calibrations", http.MethodGet, "/api/calibrations", "", http.StatusOK},
		{"unknown api path", http.MethodGet, "/api/nonexistent", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_SessionControls(t *testing.T) {
	s, src := newServer(t)

	var snap session.Snapshot
	rec := do(t, s, http.MethodGet, "/api/session", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, session.StatusPressCalibrate, snap.Status)

	do(t, s, http.MethodPost, "/api/calibrate", "")
	do(t, s, http.MethodPost, "/api/calibrate", "")
	assert.Equal(t, 2, src.calibrates)

	rec = do(t, s, http.MethodPut, "/api/enabled", `{"enabled":false}`)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	assert.False(t, src.IsEnabled())

	rec = do(t, s, http.MethodGet, "/api/enabled", "")
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestServer_RoutesNeedCollaborators(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/session", "/api/enabled", "/api/rounds", "/api/calibrations", "/api/ws", "/api/stream"} {
		assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, path, "").Code, path)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>board</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "board.js"), []byte("connect()"), 0o644))

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, index},
		{"/board.js", http.StatusOK, "connect()"},
		{"/missing.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}

	t.Run("no static dir", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, do(t, New(Config{}), http.MethodGet, "/", "").Code)
	})
}
