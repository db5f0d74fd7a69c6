package webserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/open-townhall/townhall/src/api/data"
)

// JWTMiddleware authenticates the bearer token and rejects tokens revoked
// by logout. Sets "uid" (citizen id), "jti" and "exp" on the context.
func JWTMiddleware(secret []byte, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		uid, _ := claims["sub"].(string)
		jti, _ := claims["jti"].(string)
		if uid == "" || jti == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		revoked, err := data.IsTokenRevoked(c, rdb, jti)
		if err != nil || revoked {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set("uid", uid)
		c.Set("jti", jti)
		if exp, ok := claims["exp"].(float64); ok {
			c.Set("exp", int64(exp))
		}
		c.Next()
	}
}
