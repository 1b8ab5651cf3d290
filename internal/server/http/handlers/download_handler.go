package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/server/http/dto"
)

// DownloadHandler resolves download credentials.
type DownloadHandler struct {
	facade DownloadFacade
}

// NewDownloadHandler constructs DownloadHandler.
func NewDownloadHandler(facade DownloadFacade) *DownloadHandler {
	return &DownloadHandler{facade: facade}
}

// Get handles GET /download/:token. Each successful call spends one
// download use.
func (h *DownloadHandler) Get(c *gin.Context) {
	order, err := h.facade.ConsumeDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrDownloadExpired):
			c.Status(http.StatusGone)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	resp := dto.DownloadResponse{
		OrderNumber:   order.Number,
		RemainingUses: order.DownloadLimit - order.DownloadCount,
	}
	if order.DownloadExpiresAt != nil {
		resp.ExpiresAt = *order.DownloadExpiresAt
	}
	for _, item := range order.Items {
		if !item.Physical() {
			resp.Items = append(resp.Items, item.Title)
		}
	}

	c.JSON(http.StatusOK, resp)
}
