package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewAdminMiddleware guards the operator-only endpoints. Requests need a
// bearer token signed with admin.secret; there are no user accounts behind
// this, it only keeps the maintenance surface off the public internet.
func NewAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		secret := viper.GetString("admin.secret")
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success":   false,
				"message":   "Admin endpoints are disabled",
				"requestID": requestID,
			})
			return
		}

		auth := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"message":   "Missing bearer token",
				"requestID": requestID,
			})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
			}

			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"message":   "Invalid token",
				"requestID": requestID,
			})

			zap.L().Warn("Rejected admin request", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Next()
	}
}
