package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meridianmed/clinicops_backend/config"
	"github.com/meridianmed/clinicops_backend/utils"
)

// SessionMiddleware resolves the session token into an operator identity.
// Tokens are minted by the auth service; this service only maps
// "Token:<token>" to the operator username in redis.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		operator, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyToken, token)
		ctx = context.WithValue(ctx, utils.ContextKeyOperator, operator)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
