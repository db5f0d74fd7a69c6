package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/open-townhall/townhall/src/api/data"
)

// Throttle caps requests per client per window. Keyed by authenticated
// citizen when available, client IP otherwise. The counter lives in Redis
// so every instance shares it. Distinct from the daily action budget: this
// protects the transport, the ledger rations civic power.
func Throttle(rdb *redis.Client, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("uid")
		if key == "" {
			key = c.ClientIP()
		}

		over, err := data.Throttle(c, rdb, key, limit, window)
		if err != nil {
			// Redis being down should not take writes with it.
			log.Warn().Err(err).Msg("throttle check failed")
			c.Next()
			return
		}
		if over {
			c.JSON(http.StatusTooManyRequests, gin.H{"err": "too many requests, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
