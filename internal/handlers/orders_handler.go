package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/pos-orderflow/internal/checkout"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/pos"
	"github.com/imrishuroy/pos-orderflow/internal/validation"
)

// createOrder submits a pay-on-pickup (or pre-paid) order directly.
func (h *api) createOrder(c *gin.Context) {
	var req validation.OrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	paid := req.PaidValue
	if paid != nil && paid.IsZero() {
		paid = nil
	}
	order, err := h.cfg.Checkout.PlaceOrder(c.Request.Context(), cartFrom(req.CheckoutRequest), orders.Type(req.Type), paid)
	if err != nil {
		writeSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"order_id": order.POSOrderID,
		"status":   order.Status,
		"total":    pos.JSONNumber(order.TotalPrice),
		"message":  "Заказ успешно сформирован и отправлен на кассу",
	})
}

// writeSubmitError maps a failed submission onto a status code.
func writeSubmitError(c *gin.Context, err error) {
	var apiErr *pos.APIError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, orders.ErrNoItems):
		fail(c, http.StatusBadRequest, "Пустой заказ")
	case errors.Is(err, orders.ErrInvalidType):
		fail(c, http.StatusBadRequest, "Неизвестный тип заказа")
	case errors.Is(err, pos.ErrNotConfigured), errors.Is(err, pos.ErrShopNotConfigured):
		log.Printf("[api] pos not configured: %v", err)
		fail(c, http.StatusServiceUnavailable, "Касса не настроена")
	case errors.As(err, &apiErr):
		fail(c, http.StatusBadGateway, apiErr.Message)
	case errors.Is(err, checkout.ErrSubmission):
		log.Printf("[api] order submission failed: %v", err)
		fail(c, http.StatusBadGateway, "Не удалось отправить заказ на кассу")
	default:
		log.Printf("[api] order failed: %v", err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка")
	}
}
