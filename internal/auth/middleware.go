package auth

import (
	"net/http"
	"strings"
	"time"

	"sociogram/backend/internal/database"
	"sociogram/backend/internal/models"
	"sociogram/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a valid bearer token and sets the
// authenticated userID on the context. It also records user activity.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		userID, err := jwt.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("userID", userID)

		// Best effort; an activity timestamp is not worth failing the request.
		database.DB.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("last_seen", time.Now())

		c.Next()
	}
}
