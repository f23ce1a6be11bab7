package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthzOK(t *testing.T) {
	r := gin.New()
	r.GET("/healthz", NewHealthHandler("anthropic", true).Healthz)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" || resp["provider"] != "anthropic" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestHealthzDegradedWithStubBackend(t *testing.T) {
	r := gin.New()
	r.GET("/healthz", NewHealthHandler("gemini", false).Healthz)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 even when degraded, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "degraded" || resp["provider"] != "gemini" {
		t.Errorf("unexpected response: %v", resp)
	}
}
