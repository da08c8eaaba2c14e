package utils

import (
	"context"
	"sync"
	"time"
)

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.RWMutex
)

// BlacklistToken revokes an access token id (jti) until the token's own expiry.
func BlacklistToken(ctx context.Context, jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err(); err != nil {
			Sugar.Warnf("blacklist token failed: %v", err)
		}
		return
	}
	// Single-instance fallback
	blacklistMu.Lock()
	blacklist[jti] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted reports whether a token id was revoked before its natural expiry.
func IsTokenBlacklisted(ctx context.Context, jti string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "jwt:blacklist:"+jti).Result()
		if err != nil {
			// fail open to avoid locking everyone out while Redis is down
			return false
		}
		return n > 0
	}

	blacklistMu.RLock()
	expiresAt, ok := blacklist[jti]
	blacklistMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		blacklistMu.Lock()
		delete(blacklist, jti)
		blacklistMu.Unlock()
		return false
	}
	return true
}
