package redis

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-game-service/internal/domain"
)

// QuestionLoader fetches a topic's question pool from a backing store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error)
}

// QuestionCache caches question pools in Redis as msgpack items and falls back to a
// loader on miss or when Redis is unreachable. Pools live at quiz:questions:{topicID}:{limit}.
type QuestionCache struct {
	cache  *cache.Cache
	loader QuestionLoader
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		cache:  cache.New(&cache.Options{Redis: client}),
		loader: loader,
		ttl:    ttl,
		logger: slog.Default(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error) {
	key := c.key(topicID, limit)

	var pool []domain.Question
	err := c.cache.Get(ctx, key, &pool)
	if err == nil {
		return pool, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("question cache read failed", "key", key, "error", err)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// The load is shared by every waiter, so one caller's cancellation must not fail the rest.
		loadCtx := context.WithoutCancel(ctx)

		// Re-check cache in case another goroutine filled it.
		var cached []domain.Question
		if err := c.cache.Get(loadCtx, key, &cached); err == nil {
			return cached, nil
		}

		qs, err := c.loader.ListQuestions(loadCtx, topicID, limit)
		if err != nil {
			return nil, err
		}
		if len(qs) > 0 {
			// a failed set only costs a reload
			if err := c.cache.Set(&cache.Item{
				Ctx:   loadCtx,
				Key:   key,
				Value: qs,
				TTL:   c.ttlWithJitter(),
			}); err != nil {
				c.logger.Warn("question cache write failed", "key", key, "error", err)
			}
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

// Invalidate removes the cached pool for a topic and limit.
func (c *QuestionCache) Invalidate(ctx context.Context, topicID string, limit int) error {
	err := c.cache.Delete(ctx, c.key(topicID, limit))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (c *QuestionCache) key(topicID string, limit int) string {
	return "quiz:questions:" + topicID + ":" + strconv.Itoa(limit)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
