package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pedido-service/models"
	"pedido-service/utils"
)

const UserIDKey = "userID"

// AuthMiddleware requires a bearer token signed with secret and stores the
// token's user id in the context under UserIDKey.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Status: http.StatusUnauthorized,
				Error:  "missing bearer token",
			})
			return
		}

		userID, err := utils.ParseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Status: http.StatusUnauthorized,
				Error:  "invalid token",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
