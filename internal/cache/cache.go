package cache

import (
	"context"
	"time"
)

// Cache stores JSON values with a TTL. Misses are reported with hit=false and
// a nil error.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	// TakeJSON reads and deletes key atomically.
	TakeJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	Del(ctx context.Context, keys ...string) error
}

// Keys used across services.
const (
	KeyTopicsAll = "health_topics:all"
)

func RevokedTokenKey(jti string) string  { return "auth:revoked:" + jti }
func PasswordResetKey(token string) string { return "auth:reset:" + token }
