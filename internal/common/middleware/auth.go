package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	authservice "gdz-miniapp-backend/internal/features/auth/service"
)

// InitDataHeader — заголовок, в котором фронтенд передаёт launch payload.
const InitDataHeader = "X-Telegram-Init-Data"

const claimContextKey = "claim"

// TelegramAuth проверяет launch payload и кладёт Claim в контекст запроса.
// Отказ всегда один и тот же: клиент не узнаёт, что именно не так с payload.
func TelegramAuth(auth authservice.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.OpenMode() {
			c.Set(claimContextKey, &authservice.Claim{})
			c.Next()
			return
		}

		payload := c.GetHeader(InitDataHeader)
		if payload == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Telegram authorization"})
			return
		}

		claim, err := auth.Validate(payload)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Telegram authorization"})
			return
		}

		c.Set(claimContextKey, claim)
		c.Next()
	}
}

// GetClaim достаёт личность запроса, установленную TelegramAuth.
func GetClaim(c *gin.Context) *authservice.Claim {
	v, exists := c.Get(claimContextKey)
	if !exists {
		return &authservice.Claim{}
	}
	claim, ok := v.(*authservice.Claim)
	if !ok {
		return &authservice.Claim{}
	}
	return claim
}

// RequireAdminSecret закрывает админские операции общим секретом.
// Секрет принимается в query (как у дашборда) или в заголовке.
func RequireAdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ADMIN_SECRET not configured"})
			return
		}

		provided := c.Query("secret")
		if provided == "" {
			provided = c.GetHeader("X-Admin-Secret")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Next()
	}
}
