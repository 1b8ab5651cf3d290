package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/bookpress/internal/pkg/signature"
	"github.com/mkravets/bookpress/internal/server/http/dto"
	"github.com/mkravets/bookpress/internal/usecase"
)

// Signature headers expected from the two webhook sources.
const (
	ProviderSignatureHeader = "Stripe-Signature"
	PodSignatureHeader      = "X-Pod-Signature"
)

// WebhookHandler is the ingress controller for both webhook endpoints.
// Verifiers are nil when the corresponding secret is not configured,
// which is a deployment error surfaced as a server error.
type WebhookHandler struct {
	facade           WebhookFacade
	providerVerifier *signature.ProviderVerifier
	podVerifier      *signature.SharedSecretVerifier
	logger           *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, providerVerifier *signature.ProviderVerifier, podVerifier *signature.SharedSecretVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		facade:           facade,
		providerVerifier: providerVerifier,
		podVerifier:      podVerifier,
		logger:           logger,
	}
}

// Payment handles POST /webhooks/payment.
func (h *WebhookHandler) Payment(c *gin.Context) {
	if h.providerVerifier == nil {
		h.logger.Error("provider webhook secret not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook secret not configured"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	// Reject before any ledger or order write: an unverifiable request
	// must not be able to probe or pollute state.
	if err := h.providerVerifier.Verify(body, c.GetHeader(ProviderSignatureHeader)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	evt, err := usecase.ParseProviderEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	result, err := h.facade.ProcessEvent(c.Request.Context(), evt)
	if err != nil {
		h.logger.Error("webhook pipeline failed",
			slog.String("event", evt.ID), slog.String("error", err.Error()))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toWebhookResponse(result))
}

// Print handles POST /webhooks/print, the POD provider's callback.
func (h *WebhookHandler) Print(c *gin.Context) {
	if h.podVerifier == nil {
		h.logger.Error("pod webhook secret not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook secret not configured"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.podVerifier.Verify(body, c.GetHeader(PodSignatureHeader)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	evt, err := usecase.ParsePrintEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	result, err := h.facade.ProcessPrintEvent(c.Request.Context(), evt)
	if err != nil {
		h.logger.Error("print webhook pipeline failed",
			slog.String("event", evt.ID), slog.String("error", err.Error()))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toWebhookResponse(result))
}

func toWebhookResponse(result usecase.Result) dto.WebhookResponse {
	resp := dto.WebhookResponse{Received: true, Skipped: result.Skipped}
	if result.HandlerErr != nil {
		resp.Error = result.HandlerErr.Error()
	}
	return resp
}
