package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/bookpress/internal/config"
	"github.com/mkravets/bookpress/internal/pkg/signature"
	"github.com/mkravets/bookpress/internal/server/http/handlers"
	testhelpers "github.com/mkravets/bookpress/internal/test"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := testhelpers.NewFacadeStub()
	providerVerifier := signature.NewProviderVerifier("whsec_test", signature.Options{})
	podVerifier := signature.NewSharedSecretVerifier("pod_secret")
	cfg := &config.Config{AdminToken: "s3cret"}
	engine := Setup(facade, providerVerifier, podVerifier, cfg, logger)

	body, _ := json.Marshal(map[string]any{
		"session_id": "cs_1",
		"email":      "reader@example.com",
		"items":      []map[string]string{{"book_id": "bk_1", "format": "digital"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for order create, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/BP-1", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for order status, got %d", resp.Code)
	}

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	req = httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set(handlers.ProviderSignatureHeader, providerVerifier.Sign(payload, time.Now()))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for payment webhook, got %d", resp.Code)
	}
	if len(facade.Events) != 1 {
		t.Fatalf("expected webhook to reach facade, got %d events", len(facade.Events))
	}

	podPayload := []byte(`{"id":"pev_1","job_id":"pod_1","external_id":"BP-1","status":"SHIPPED"}`)
	req = httptest.NewRequest(http.MethodPost, "/webhooks/print", bytes.NewReader(podPayload))
	req.Header.Set(handlers.PodSignatureHeader, podVerifier.Sign(podPayload))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for print webhook, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/orders/BP-1/refund", bytes.NewReader([]byte(`{}`)))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without admin token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/orders/BP-1/refund", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for authorized refund, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/download/tok", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for download, got %d", resp.Code)
	}
}

var _ handlers.Facade = (*testhelpers.FacadeStub)(nil)
