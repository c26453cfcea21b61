package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewJWTMiddleware resolves the calling user from the auth_token cookie and
// sets userID on the context. Identity management itself lives elsewhere,
// this only verifies the boundary.
func NewJWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr, err := c.Cookie("auth_token")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No auth_token cookie",
				"requestID": requestID,
			})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
			}

			return []byte(viper.GetString("jwt.secret")), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "token_invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Failed to parse token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "token_invalid",
				"requestID": requestID,
			})
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "token_invalid",
				"requestID": requestID,
			})
			return
		}

		exp, ok := claims["exp"].(float64)
		if !ok || time.Now().Unix() >= int64(exp) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "token_expired",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
