package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-game-service/internal/domain"
)

// QuestionLoader fetches a topic's question pool from a backing store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error)
}

// QuestionCache caches question pools with TTL to avoid repeated DB hits.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error) {
	key := topicID + ":" + strconv.Itoa(limit)
	if qs, ok := c.lookup(key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if qs, ok := c.lookup(key); ok {
			return qs, nil
		}
		// shared by every waiter, so it ignores the first caller's cancellation
		qs, err := c.loader.ListQuestions(context.WithoutCancel(ctx), topicID, limit)
		if err != nil {
			return nil, err
		}
		// empty pools are not cached so newly seeded topics become playable
		if len(qs) > 0 {
			c.mu.Lock()
			c.cache[key] = cachedPool{
				questions: qs,
				expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
			}
			c.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

// Invalidate drops every cached pool.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedPool)
	c.mu.Unlock()
}

func (c *QuestionCache) lookup(key string) ([]domain.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return append([]domain.Question(nil), entry.questions...), true
}

func (c *QuestionCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
