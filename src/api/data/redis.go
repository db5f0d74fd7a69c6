package data

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	revokedPrefix  = "revoked:"
	throttlePrefix = "throttle:"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	return redis.NewClient(opt)
}

// RevokeToken denylists a JWT id until the token would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func IsTokenRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	n, err := rdb.Exists(ctx, revokedPrefix+jti).Result()
	return n > 0, err
}

// Throttle counts a hit against key within the window and reports whether
// the caller is over the limit. INCR plus first-hit EXPIRE keeps the
// counter atomic across instances.
func Throttle(ctx context.Context, rdb *redis.Client, key string, limit int64, window time.Duration) (bool, error) {
	n, err := rdb.Incr(ctx, throttlePrefix+key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := rdb.Expire(ctx, throttlePrefix+key, window).Err(); err != nil {
			return false, err
		}
	}
	return n > limit, nil
}
