package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"quiz-game-service/internal/domain"
)

// AnswerLimiter caps answer submissions per user per minute with a GCRA limiter.
type AnswerLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

func NewAnswerLimiter(client *redis.Client, perMinute int) *AnswerLimiter {
	return &AnswerLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit:   redis_rate.PerMinute(perMinute),
	}
}

func (l *AnswerLimiter) Allow(ctx context.Context, userID string) error {
	res, err := l.limiter.Allow(ctx, limitKey(userID), l.limit)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if res.Allowed == 0 {
		return fmt.Errorf("%w: retry in %s", domain.ErrRateLimited, res.RetryAfter)
	}
	return nil
}

func limitKey(userID string) string {
	return "answers:" + userID
}
