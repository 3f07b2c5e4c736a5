package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/pos-orderflow/internal/webhook"
)

// orderStatusWebhook always answers 200 OK so the POS does not retry.
func (h *api) orderStatusWebhook(c *gin.Context) {
	var n webhook.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		log.Printf("[api] webhook body rejected: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}
	h.cfg.Webhook.Ingest(c.Request.Context(), n)
	c.String(http.StatusOK, "OK")
}
