package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gamedex/catalog"
	"gamedex/config"
	"gamedex/handlers/auth"
	"gamedex/realtime"
	"gamedex/stores/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"https://*", "http://*"}},
	}
	client, err := catalog.NewClient(catalog.Options{BaseURL: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Failed to create catalog client: %v", err)
	}
	hub := realtime.NewHub(nil)
	t.Cleanup(hub.Close)
	return setupRouter(cfg, client, memory.NewStore(), auth.NewService(config.AuthConfig{}), hub)
}

func TestCORS_DoesNotAllowCredentials(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/user/collections", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("Expected preflight to be answered, got headers %v", rr.Header())
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Expected no Access-Control-Allow-Credentials header, got %q", got)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
