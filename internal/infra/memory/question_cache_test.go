package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-game-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	store, topic := seededStore(t, 8)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	qs, err := cache.ListQuestions(context.Background(), topic.ID, 100)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 8 {
		t.Fatalf("expected 8 questions, got %d", len(qs))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := cache.ListQuestions(context.Background(), topic.ID, 100); err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	store, topic := seededStore(t, 8)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.ListQuestions(context.Background(), topic.ID, 100); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.ListQuestions(context.Background(), topic.ID, 100); err != nil {
		t.Fatalf("list questions after ttl: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.count())
	}
}

func TestQuestionCacheSkipsEmptyPools(t *testing.T) {
	store := NewStore()
	topic := store.AddTopic(domain.Topic{Slug: "empty", Name: "Empty"}, nil)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.ListQuestions(context.Background(), topic.ID, 100); err != nil {
			t.Fatalf("list questions: %v", err)
		}
	}
	if loader.count() != 2 {
		t.Fatalf("expected empty pool not cached, loader calls %d", loader.count())
	}
}

func TestQuestionCacheDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("db down")}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.ListQuestions(context.Background(), "t1", 100); err == nil {
		t.Fatalf("expected loader error")
	}
	if _, err := cache.ListQuestions(context.Background(), "t1", 100); err == nil {
		t.Fatalf("expected loader error")
	}
	if loader.count() != 2 {
		t.Fatalf("expected two loads, got %d", loader.count())
	}
}

func TestQuestionCacheReturnsCopies(t *testing.T) {
	store, topic := seededStore(t, 8)
	cache := NewQuestionCache(store, time.Minute)

	first, _ := cache.ListQuestions(context.Background(), topic.ID, 100)
	first[0].Text = "mutated"
	second, _ := cache.ListQuestions(context.Background(), topic.ID, 100)
	if second[0].Text == "mutated" {
		t.Fatalf("cache entry was mutated through a returned slice")
	}
}

func TestQuestionCacheLoadIgnoresCallerCancellation(t *testing.T) {
	store, topic := seededStore(t, 8)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cache.ListQuestions(ctx, topic.ID, 100); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if loader.ctxErr != nil {
		t.Fatalf("loader saw a cancelled context: %v", loader.ctxErr)
	}

	if _, err := cache.ListQuestions(context.Background(), topic.ID, 100); err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected the pool cached after a cancelled caller, loader calls %d", loader.count())
	}
}

type countingLoader struct {
	QuestionLoader
	err error

	mu     sync.Mutex
	calls  int
	ctxErr error
}

func (l *countingLoader) ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.ctxErr = ctx.Err()
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.QuestionLoader.ListQuestions(ctx, topicID, limit)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
