package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *api) getMenu(c *gin.Context) {
	snap, ok := h.cfg.Menu.Snapshot()
	if !ok {
		fail(c, http.StatusServiceUnavailable, "Меню загружается, попробуйте через минуту.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap.Group, "refreshed_at": snap.RefreshedAt})
}

func (h *api) getSupplements(c *gin.Context) {
	snap, ok := h.cfg.Menu.Snapshot()
	if !ok {
		fail(c, http.StatusServiceUnavailable, "Данные загружаются, попробуйте через минуту.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap.Supplements, "refreshed_at": snap.RefreshedAt})
}
