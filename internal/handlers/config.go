package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/checkout"
	"github.com/imrishuroy/pos-orderflow/internal/menu"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/payments"
	"github.com/imrishuroy/pos-orderflow/internal/validation"
	"github.com/imrishuroy/pos-orderflow/internal/webhook"
)

// Checkout is the payment completion surface used by the HTTP layer.
type Checkout interface {
	PlaceOrder(ctx context.Context, cart checkout.Cart, orderType orders.Type, paid *decimal.Decimal) (*orders.Order, error)
	PreparePending(ctx context.Context, cart checkout.Cart) (string, error)
	PrepareGatewayPayment(ctx context.Context, cart checkout.Cart) (*checkout.GatewayCheckout, error)
	CompleteRedirect(ctx context.Context, token string) checkout.RedirectResult
	CompleteInvoice(ctx context.Context, token string, paid *decimal.Decimal, ownerID int64) (*checkout.FinalizeResult, error)
	Pending(ctx context.Context, token string) (*payments.PendingPayment, error)
	WebAppURL() string
}

// MenuSource serves the cached catalog.
type MenuSource interface {
	Snapshot() (*menu.Snapshot, bool)
}

// StatusIngestor applies POS status callbacks.
type StatusIngestor interface {
	Ingest(ctx context.Context, n webhook.Notification)
}

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	Checkout  Checkout
	Menu      MenuSource
	Webhook   StatusIngestor
	BotSecret string
}

type api struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
}

// RegisterRoutes registers every /api route.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &api{cfg: cfg, v: validation.New()}

	g := r.Group("/api")
	g.GET("/menu", h.getMenu)
	g.GET("/supplements", h.getSupplements)
	g.POST("/order", h.createOrder)

	g.POST("/payment/prepare", h.preparePayment)
	g.POST("/payment/create-inapp", h.createInAppPayment)
	g.GET("/payment/return", h.paymentReturn)

	bot := g.Group("", RequireBotSecret(cfg.BotSecret))
	bot.GET("/payment/pending/:token", h.pendingPayment)
	bot.POST("/order-from-payment", h.orderFromPayment)

	g.POST("/webhook/order-status", h.orderStatusWebhook)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func cartFrom(req validation.CheckoutRequest) checkout.Cart {
	return checkout.Cart{
		OwnerID: req.TelegramUserID,
		Items:   req.CartItems(),
		Client:  req.ClientInfo(),
		Comment: req.Comment,
	}
}
