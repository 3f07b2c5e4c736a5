package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/pos-orderflow/internal/checkout"
	"github.com/imrishuroy/pos-orderflow/internal/payments"
	"github.com/imrishuroy/pos-orderflow/internal/pos"
	"github.com/imrishuroy/pos-orderflow/internal/validation"
)

const msgPaymentNotFound = "Платёж не найден или уже использован"

// preparePayment stores the cart for an in-chat invoice.
func (h *api) preparePayment(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	token, err := h.cfg.Checkout.PreparePending(c.Request.Context(), cartFrom(req))
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			fail(c, http.StatusBadRequest, "Пустая корзина")
			return
		}
		log.Printf("[api] prepare payment failed: %v", err)
		fail(c, http.StatusInternalServerError, "Не удалось подготовить платёж")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment_token": token})
}

// createInAppPayment stores the cart and opens a gateway payment.
func (h *api) createInAppPayment(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	co, err := h.cfg.Checkout.PrepareGatewayPayment(c.Request.Context(), cartFrom(req))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "payment_token": co.Token, "confirmation_url": co.ConfirmationURL})
	case errors.Is(err, checkout.ErrEmptyCart):
		fail(c, http.StatusBadRequest, "Пустая корзина")
	case errors.Is(err, checkout.ErrInvalidTotal):
		fail(c, http.StatusBadRequest, "Некорректная сумма")
	case errors.Is(err, checkout.ErrGatewayNotConfigured):
		fail(c, http.StatusServiceUnavailable, "Оплата в приложении не настроена. Выберите «Оплата при получении» или оплату через бота.")
	case errors.Is(err, checkout.ErrReturnURLNotConfigured):
		fail(c, http.StatusInternalServerError, "WEBAPP_URL не задан")
	case errors.Is(err, checkout.ErrGatewayRejected):
		log.Printf("[api] gateway payment failed: %v", err)
		fail(c, http.StatusBadGateway, "Не удалось создать платёж. Попробуйте позже.")
	default:
		log.Printf("[api] create in-app payment failed: %v", err)
		fail(c, http.StatusInternalServerError, "Не удалось создать платёж. Попробуйте позже.")
	}
}

// paymentReturn is where the gateway sends the payer back.
func (h *api) paymentReturn(c *gin.Context) {
	res := h.cfg.Checkout.CompleteRedirect(c.Request.Context(), c.Query("payment_token"))
	c.Redirect(http.StatusFound, res.URL(h.cfg.Checkout.WebAppURL()))
}

// pendingPayment returns the stored cart to the chat bot.
func (h *api) pendingPayment(c *gin.Context) {
	p, err := h.cfg.Checkout.Pending(c.Request.Context(), c.Param("token"))
	if errors.Is(err, payments.ErrNotFound) {
		fail(c, http.StatusNotFound, msgPaymentNotFound)
		return
	}
	if err != nil {
		log.Printf("[api] pending lookup failed: %v", err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"items":       p.Items,
		"total":       pos.JSONNumber(p.Total),
		"client":      p.Client,
		"comment":     p.Comment,
		"telegram_id": p.OwnerID,
	})
}

// orderFromPayment finalizes after the bot saw a successful invoice payment.
func (h *api) orderFromPayment(c *gin.Context) {
	var req validation.OrderFromPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	res, err := h.cfg.Checkout.CompleteInvoice(c.Request.Context(), req.PaymentToken, req.PaidAmount, req.TelegramID)
	if err != nil {
		writeSubmitError(c, err)
		return
	}
	switch res.Outcome {
	case checkout.OutcomeCreated:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"order_id": res.Order.POSOrderID,
			"status":   res.Order.Status,
			"total":    pos.JSONNumber(res.Order.TotalPrice),
		})
	case checkout.OutcomeInProgress:
		fail(c, http.StatusConflict, "Платёж уже обрабатывается")
	default:
		fail(c, http.StatusNotFound, msgPaymentNotFound)
	}
}
