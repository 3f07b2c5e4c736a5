package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BotSecretHeader carries the shared secret of the chat bot.
const BotSecretHeader = "X-Bot-Secret"

// RequireBotSecret rejects requests whose X-Bot-Secret does not match
// secret. With no secret configured every request is rejected.
func RequireBotSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "BOT_INTERNAL_SECRET не задан"})
			return
		}
		got := c.GetHeader(BotSecretHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Неверный или отсутствующий X-Bot-Secret"})
			return
		}
		c.Next()
	}
}
