package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/board/config"
)

func signupKey(ip string, day time.Time) string {
	return "signup:succday:" + ip + ":" + day.Format("20060102")
}

// SignupAllowed reports whether the IP is still under its daily signup limit. Fails open.
func SignupAllowed(ctx context.Context, ip string) bool {
	limit := config.Get().SignupMaxPerIPPerDay
	cli := GetRedis()
	if limit <= 0 || cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := cli.Get(ctx, signupKey(ip, time.Now())).Int()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		return true
	}
	return n < limit
}

// SignupRecord counts a successful signup for the IP until the end of the day.
func SignupRecord(ctx context.Context, ip string) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	now := time.Now()
	key := signupKey(ip, now)
	if err := cli.Incr(ctx, key).Err(); err == nil {
		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
		_ = cli.Expire(ctx, key, time.Until(endOfDay)).Err()
	}
}
