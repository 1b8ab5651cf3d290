package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/server/http/dto"
	"github.com/mkravets/bookpress/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := usecase.CreateOrderInput{
		SessionID: req.SessionID,
		Email:     req.Email,
		Currency:  req.Currency,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, usecase.ItemInput{
			BookID:   item.BookID,
			Title:    item.Title,
			Format:   item.Format,
			Quantity: item.Quantity,
		})
	}
	if req.Shipping != nil {
		in.Shipping = &model.ShippingAddress{
			Name:       req.Shipping.Name,
			Line1:      req.Shipping.Line1,
			Line2:      req.Shipping.Line2,
			City:       req.Shipping.City,
			PostalCode: req.Shipping.PostalCode,
			Country:    req.Shipping.Country,
		}
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			c.Status(http.StatusConflict)
		case errors.Is(err, domainErrors.ErrUnknownPriceEntry):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown book or format"})
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.Status(http.StatusBadRequest)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		Number:      order.Number,
		AmountTotal: order.AmountTotal,
		Currency:    order.Currency,
	})
}

// Status handles GET /api/orders/:number.
func (h *OrderHandler) Status(c *gin.Context) {
	order, err := h.facade.OrderStatus(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toOrderStatusResponse(order))
}

func toOrderStatusResponse(order *model.Order) dto.OrderStatusResponse {
	resp := dto.OrderStatusResponse{
		Number:            order.Number,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		FulfillmentStatus: string(order.FulfillmentStatus),
		AmountTotal:       order.AmountTotal,
		Currency:          order.Currency,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		CompletedAt:       order.CompletedAt,
		RefundedAt:        order.RefundedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			BookID:     item.BookID,
			Title:      item.Title,
			Format:     item.Format,
			UnitAmount: item.UnitAmount,
			Quantity:   item.Quantity,
		})
	}
	return resp
}
