package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var incrementAttemptsScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])

	local current = tonumber(redis.call("GET", key) or "0")
	if current >= limit then
		return -1
	end

	return redis.call("INCR", key)
`)

func (s *RedisService) GetWalletAttempts(ctx context.Context, wallet string) (int64, error) {
	key := fmt.Sprintf(KeyWalletAttempts, wallet)

	n, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet attempts: %w", err)
	}
	return n, nil
}

// IncrementWalletAttempts bumps the counter unless it already sits at limit,
// in which case it returns ErrMaxAttemptsExceeded. Returns the new count.
func (s *RedisService) IncrementWalletAttempts(ctx context.Context, wallet string, limit int) (int64, error) {
	key := fmt.Sprintf(KeyWalletAttempts, wallet)

	n, err := incrementAttemptsScript.Run(ctx, s.client, []string{key}, limit).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment wallet attempts: %w", err)
	}
	if n < 0 {
		return 0, ErrMaxAttemptsExceeded
	}
	return n, nil
}

func (s *RedisService) ClearWalletAttempts(ctx context.Context, wallet string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWalletAttempts, wallet)).Err()
}
