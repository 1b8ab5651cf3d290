package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/pkg/signature"
	"github.com/mkravets/bookpress/internal/server/http/dto"
	testhelpers "github.com/mkravets/bookpress/internal/test"
	"github.com/mkravets/bookpress/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, path, target string, handler gin.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func providerVerifier() *signature.ProviderVerifier {
	return signature.NewProviderVerifier("whsec_test", signature.Options{})
}

func signedProviderHeaders(v *signature.ProviderVerifier, payload []byte) map[string]string {
	return map[string]string{ProviderSignatureHeader: v.Sign(payload, time.Now())}
}

var providerPayload = []byte(`{
    "id": "evt_1",
    "type": "checkout.session.completed",
    "data": {"object": {"id": "cs_1", "payment_intent": "pi_1"}}
}`)

func TestWebhookHandlerPayment(t *testing.T) {
	verifier := providerVerifier()
	facade := &testhelpers.WebhookFacadeStub{}
	handler := NewWebhookHandler(facade, verifier, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, signedProviderHeaders(verifier, providerPayload))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var ack dto.WebhookResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !ack.Received || ack.Skipped || ack.Error != "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(facade.Events) != 1 || facade.Events[0].ID != "evt_1" {
		t.Fatalf("unexpected facade calls: %+v", facade.Events)
	}
}

func TestWebhookHandlerPaymentInvalidSignature(t *testing.T) {
	facade := &testhelpers.WebhookFacadeStub{}
	handler := NewWebhookHandler(facade, providerVerifier(), nil, discardLogger())

	headers := map[string]string{ProviderSignatureHeader: "t=123,v1=deadbeef"}
	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, headers)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	// The pipeline must never see an unverified delivery.
	if len(facade.Events) != 0 {
		t.Fatal("unverified request reached the facade")
	}
}

func TestWebhookHandlerPaymentMissingSecret(t *testing.T) {
	facade := &testhelpers.WebhookFacadeStub{}
	handler := NewWebhookHandler(facade, nil, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	if len(facade.Events) != 0 {
		t.Fatal("request processed without a configured secret")
	}
}

func TestWebhookHandlerPaymentMalformedPayload(t *testing.T) {
	verifier := providerVerifier()
	facade := &testhelpers.WebhookFacadeStub{}
	handler := NewWebhookHandler(facade, verifier, nil, discardLogger())

	payload := []byte(`{"type":"checkout.session.completed"}`)
	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, payload, signedProviderHeaders(verifier, payload))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if len(facade.Events) != 0 {
		t.Fatal("malformed payload reached the facade")
	}
}

func TestWebhookHandlerPaymentSkippedDuplicate(t *testing.T) {
	verifier := providerVerifier()
	facade := &testhelpers.WebhookFacadeStub{ProcessFn: func(context.Context, model.ProviderEvent) (usecase.Result, error) {
		return usecase.Result{Skipped: true}, nil
	}}
	handler := NewWebhookHandler(facade, verifier, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, signedProviderHeaders(verifier, providerPayload))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var ack dto.WebhookResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &ack)
	if !ack.Skipped {
		t.Fatalf("duplicate must be acknowledged as skipped: %+v", ack)
	}
}

func TestWebhookHandlerPaymentHandlerFailureStillAcknowledged(t *testing.T) {
	verifier := providerVerifier()
	facade := &testhelpers.WebhookFacadeStub{ProcessFn: func(context.Context, model.ProviderEvent) (usecase.Result, error) {
		return usecase.Result{HandlerErr: errors.New("fulfillment exploded")}, nil
	}}
	handler := NewWebhookHandler(facade, verifier, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, signedProviderHeaders(verifier, providerPayload))
	if resp.Code != http.StatusOK {
		t.Fatalf("handler failure must still acknowledge, got %d", resp.Code)
	}
	var ack dto.WebhookResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &ack)
	if !ack.Received || ack.Error == "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestWebhookHandlerPaymentPipelineError(t *testing.T) {
	verifier := providerVerifier()
	facade := &testhelpers.WebhookFacadeStub{ProcessFn: func(context.Context, model.ProviderEvent) (usecase.Result, error) {
		return usecase.Result{}, errors.New("ledger unavailable")
	}}
	handler := NewWebhookHandler(facade, verifier, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment",
		handler.Payment, providerPayload, signedProviderHeaders(verifier, providerPayload))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestWebhookHandlerPrint(t *testing.T) {
	verifier := signature.NewSharedSecretVerifier("pod_secret")
	facade := &testhelpers.WebhookFacadeStub{}
	handler := NewWebhookHandler(facade, nil, verifier, discardLogger())

	payload := []byte(`{"id":"pev_1","job_id":"pod_1","external_id":"BP-1","status":"SHIPPED"}`)
	headers := map[string]string{PodSignatureHeader: verifier.Sign(payload)}
	resp := performRequest(t, http.MethodPost, "/webhooks/print", "/webhooks/print",
		handler.Print, payload, headers)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if len(facade.PrintEvents) != 1 || facade.PrintEvents[0].Status != model.PrintStatusShipped {
		t.Fatalf("unexpected facade calls: %+v", facade.PrintEvents)
	}

	headers[PodSignatureHeader] = "deadbeef"
	resp = performRequest(t, http.MethodPost, "/webhooks/print", "/webhooks/print",
		handler.Print, payload, headers)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if len(facade.PrintEvents) != 1 {
		t.Fatal("unverified request reached the facade")
	}
}

func TestOrderHandlerCreate(t *testing.T) {
	body, _ := json.Marshal(dto.CreateOrderRequest{
		SessionID: "cs_1",
		Email:     "reader@example.com",
		Items:     []dto.CreateOrderItem{{BookID: "bk_1", Format: "digital"}},
	})
	stub := testhelpers.OrderFacadeStub{CreateFn: func(_ context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
		if in.SessionID != "cs_1" || len(in.Items) != 1 {
			t.Fatalf("unexpected input: %+v", in)
		}
		return &model.Order{Number: "BP-1", AmountTotal: 1500, Currency: "usd"}, nil
	}}
	resp := performRequest(t, http.MethodPost, "/api/orders", "/api/orders",
		NewOrderHandler(stub).Create, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	var created dto.CreateOrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if created.Number != "BP-1" || created.AmountTotal != 1500 {
		t.Fatalf("unexpected response: %+v", created)
	}
}

func TestOrderHandlerCreateErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"duplicate session", domainErrors.ErrAlreadyExists, http.StatusConflict},
		{"unknown price", domainErrors.ErrUnknownPriceEntry, http.StatusUnprocessableEntity},
		{"empty order", domainErrors.ErrInvalidAmount, http.StatusBadRequest},
		{"storage failure", errors.New("boom"), http.StatusInternalServerError},
	}
	body, _ := json.Marshal(dto.CreateOrderRequest{
		SessionID: "cs_1",
		Email:     "reader@example.com",
		Items:     []dto.CreateOrderItem{{BookID: "bk_1", Format: "digital"}},
	})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := testhelpers.OrderFacadeStub{CreateFn: func(context.Context, usecase.CreateOrderInput) (*model.Order, error) {
				return nil, tc.err
			}}
			resp := performRequest(t, http.MethodPost, "/api/orders", "/api/orders",
				NewOrderHandler(stub).Create, body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tc.code {
				t.Fatalf("expected status %d, got %d", tc.code, resp.Code)
			}
		})
	}

	resp := performRequest(t, http.MethodPost, "/api/orders", "/api/orders",
		NewOrderHandler(testhelpers.OrderFacadeStub{}).Create, []byte(`{"email":"x"}`), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid body, got %d", resp.Code)
	}
}

func TestOrderHandlerStatus(t *testing.T) {
	stub := testhelpers.OrderFacadeStub{StatusFn: func(_ context.Context, number string) (*model.Order, error) {
		if number != "BP-1" {
			return nil, domainErrors.ErrNotFound
		}
		return &model.Order{
			Number: "BP-1", Status: model.OrderStatusCompleted,
			PaymentStatus: model.PaymentStatusPaid, FulfillmentStatus: model.FulfillmentFulfilled,
			Items: []model.LineItem{{BookID: "bk_1", Title: "Go Patterns", Format: "digital", UnitAmount: 1500, Quantity: 1}},
		}, nil
	}}
	handler := NewOrderHandler(stub)

	resp := performRequest(t, http.MethodGet, "/api/orders/:number", "/api/orders/BP-1", handler.Status, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var status dto.OrderStatusResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if status.PaymentStatus != "paid" || status.FulfillmentStatus != "fulfilled" || len(status.Items) != 1 {
		t.Fatalf("unexpected response: %+v", status)
	}

	resp = performRequest(t, http.MethodGet, "/api/orders/:number", "/api/orders/BP-missing", handler.Status, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestDownloadHandlerGet(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).UTC()
	token := testhelpers.RandomASCIIString(32, 32)
	stub := testhelpers.DownloadFacadeStub{ConsumeFn: func(_ context.Context, got string) (*model.Order, error) {
		switch got {
		case token:
			return &model.Order{
				Number: "BP-1",
				Items: []model.LineItem{
					{BookID: "bk_1", Title: "Go Patterns", Format: "digital"},
					{BookID: "bk_2", Title: "Go Patterns", Format: "paperback"},
				},
				DownloadToken: &token, DownloadExpiresAt: &expiresAt,
				DownloadCount: 2, DownloadLimit: 5,
			}, nil
		case "expired":
			return nil, domainErrors.ErrDownloadExpired
		default:
			return nil, domainErrors.ErrNotFound
		}
	}}
	handler := NewDownloadHandler(stub)

	resp := performRequest(t, http.MethodGet, "/download/:token", "/download/"+token, handler.Get, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var dl dto.DownloadResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &dl); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if dl.RemainingUses != 3 {
		t.Fatalf("unexpected remaining uses: %d", dl.RemainingUses)
	}
	// Only digital titles are downloadable.
	if len(dl.Items) != 1 || dl.Items[0] != "Go Patterns" {
		t.Fatalf("unexpected items: %v", dl.Items)
	}

	resp = performRequest(t, http.MethodGet, "/download/:token", "/download/expired", handler.Get, nil, nil)
	if resp.Code != http.StatusGone {
		t.Fatalf("expected status 410, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/download/:token", "/download/unknown", handler.Get, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestAdminHandlerRefund(t *testing.T) {
	body, _ := json.Marshal(dto.RefundRequest{Reason: "requested_by_customer"})

	stub := testhelpers.OrderFacadeStub{RefundFn: func(_ context.Context, number string, amount *int64, reason string) (*model.Refund, error) {
		if number != "BP-1" || reason != "requested_by_customer" {
			t.Fatalf("unexpected arguments: %s %s", number, reason)
		}
		return &model.Refund{ID: "re_1", Amount: 1500, Status: "succeeded"}, nil
	}}
	resp := performRequest(t, http.MethodPost, "/api/admin/orders/:number/refund", "/api/admin/orders/BP-1/refund",
		NewAdminHandler(stub).Refund, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var refund dto.RefundResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &refund); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if refund.ID != "re_1" || refund.Amount != 1500 {
		t.Fatalf("unexpected response: %+v", refund)
	}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown order", domainErrors.ErrNotFound, http.StatusNotFound},
		{"no payment intent", domainErrors.ErrMissingPayment, http.StatusConflict},
		{"provider failure", errors.New("provider 502"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := testhelpers.OrderFacadeStub{RefundFn: func(context.Context, string, *int64, string) (*model.Refund, error) {
				return nil, tc.err
			}}
			resp := performRequest(t, http.MethodPost, "/api/admin/orders/:number/refund", "/api/admin/orders/BP-1/refund",
				NewAdminHandler(stub).Refund, body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tc.code {
				t.Fatalf("expected status %d, got %d", tc.code, resp.Code)
			}
		})
	}
}
