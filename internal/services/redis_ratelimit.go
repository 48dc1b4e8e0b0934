package services

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// CheckSubmitRateLimit records an attempt for ip and fails with
// ErrRateLimitExceeded if the previous one is younger than window. SET NX PX
// makes the check and the record a single step, so two racing requests cannot
// both see an empty slot.
func (s *RedisService) CheckSubmitRateLimit(ctx context.Context, ip string, window time.Duration) error {
	key := fmt.Sprintf(KeyRateLimit, ip)
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	ok, err := s.client.SetNX(ctx, key, now, window).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !ok {
		return ErrRateLimitExceeded
	}
	return nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, ip string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, ip)).Err()
}
