package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/server/http/dto"
)

// AdminHandler exposes operator actions.
type AdminHandler struct {
	facade OrderFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade OrderFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// Refund handles POST /api/admin/orders/:number/refund.
func (h *AdminHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refund, err := h.facade.Refund(c.Request.Context(), c.Param("number"), req.Amount, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrMissingPayment):
			c.JSON(http.StatusConflict, gin.H{"error": "order has no payment intent"})
		default:
			c.Status(http.StatusBadGateway)
		}
		return
	}

	c.JSON(http.StatusOK, dto.RefundResponse{
		ID:     refund.ID,
		Amount: refund.Amount,
		Status: refund.Status,
	})
}
