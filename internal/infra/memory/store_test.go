package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-game-service/internal/domain"
)

func seededStore(t *testing.T, n int) (*Store, domain.Topic) {
	t.Helper()
	store := NewStore()
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			Text:             fmt.Sprintf("Question %d?", i+1),
			CorrectAnswer:    "yes",
			IncorrectAnswers: []string{"no", "maybe"},
		})
	}
	topic := store.AddTopic(domain.Topic{Slug: "general", Name: "General", Category: "trivia"}, questions)
	return store, topic
}

func TestStoreFindTopicBySlug(t *testing.T) {
	store, topic := seededStore(t, 3)

	got, err := store.FindTopicBySlug(context.Background(), "general")
	if err != nil {
		t.Fatalf("find topic: %v", err)
	}
	if got.ID != topic.ID {
		t.Fatalf("expected topic %s, got %s", topic.ID, got.ID)
	}
	if _, err := store.FindTopicBySlug(context.Background(), "missing"); !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}

func TestStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store, topic := seededStore(t, 3)

	id, err := store.CreateSession(ctx, "u1", topic.ID, domain.ModePractice)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, _ := store.TopicByID(ctx, topic.ID)
	if got.PlayCount != 1 {
		t.Fatalf("expected play count 1, got %d", got.PlayCount)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 2; i >= 0; i-- {
		if err := store.InsertAnswer(ctx, id, domain.AnsweredQuestion{
			QuestionID: fmt.Sprintf("q%d", i),
			AnsweredAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("insert answer: %v", err)
		}
	}
	answers, _ := store.ListAnswers(ctx, id)
	if len(answers) != 3 || answers[0].QuestionID != "q0" || answers[2].QuestionID != "q2" {
		t.Fatalf("expected answers ordered by time, got %+v", answers)
	}

	if err := store.CompleteSession(ctx, id, domain.Completion{Score: 300, CompletedAt: base}); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if err := store.CompleteSession(ctx, id, domain.Completion{Score: 1}); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	rec, _ := store.GetSession(ctx, id)
	if !rec.Completed || rec.Score != 300 {
		t.Fatalf("unexpected record %+v", rec)
	}

	if err := store.InsertAnswer(ctx, "missing", domain.AnsweredQuestion{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreListCompletedSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, topic := seededStore(t, 3)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := store.CreateSession(ctx, "u1", topic.ID, domain.ModePractice)
		_ = store.CompleteSession(ctx, id, domain.Completion{CompletedAt: base.Add(time.Duration(i) * time.Hour)})
		ids = append(ids, id)
	}
	// unfinished and other users' sessions are excluded
	_, _ = store.CreateSession(ctx, "u1", topic.ID, domain.ModePractice)
	other, _ := store.CreateSession(ctx, "u2", topic.ID, domain.ModePractice)
	_ = store.CompleteSession(ctx, other, domain.Completion{CompletedAt: base})

	got, err := store.ListCompletedSessions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestStoreIncrementProfileStatsIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.IncrementProfileStats(ctx, "u1", domain.StatsDelta{XP: 10, Questions: 7, Correct: 3})
		}()
	}
	wg.Wait()

	p, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.TotalXP != 500 || p.GamesPlayed != 50 || p.QuestionsAnswered != 350 || p.CorrectAnswers != 150 {
		t.Fatalf("unexpected profile %+v", p)
	}
	// 500 xp is past 100 (level 2), 250 (level 3) and 475 (level 4)
	if p.Level != 4 {
		t.Fatalf("expected level 4, got %d", p.Level)
	}
	if _, err := store.GetProfile(ctx, "nobody"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStoreCatalogOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.AddTopic(domain.Topic{Slug: "space", Name: "Space", Category: "science", PlayCount: 5}, nil)
	store.AddTopic(domain.Topic{Slug: "art", Name: "Art", Category: "culture", PlayCount: 1}, nil)
	store.AddTopic(domain.Topic{Slug: "biology", Name: "Biology", Category: "science", PlayCount: 9}, nil)
	store.AddTopic(domain.Topic{Slug: "misc", Name: "Misc"}, nil)

	topics, _ := store.ListTopics(ctx, "")
	if topics[0].Name != "Art" || topics[3].Name != "Space" {
		t.Fatalf("expected topics ordered by name, got %+v", topics)
	}
	science, _ := store.ListTopics(ctx, "science")
	if len(science) != 2 {
		t.Fatalf("expected 2 science topics, got %d", len(science))
	}
	categories, _ := store.ListCategories(ctx)
	if fmt.Sprint(categories) != "[culture science]" {
		t.Fatalf("unexpected categories %v", categories)
	}
	featured, _ := store.FeaturedTopics(ctx, 2)
	if len(featured) != 2 || featured[0].Slug != "biology" || featured[1].Slug != "space" {
		t.Fatalf("unexpected featured %+v", featured)
	}
}

func TestNewStoreFromBank(t *testing.T) {
	bank := domain.QuestionBank{Topics: []domain.BankTopic{{
		Slug: "capitals",
		Name: "Capitals",
		Questions: []domain.BankQuestion{
			{Text: "Capital of France?", Correct: "Paris", Incorrect: []string{"Lyon"}},
		},
	}}}
	store, err := NewStoreFromBank(bank)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	topic, err := store.FindTopicBySlug(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("find topic: %v", err)
	}
	qs, _ := store.ListQuestions(context.Background(), topic.ID, 100)
	if len(qs) != 1 || qs[0].TopicID != topic.ID || qs[0].ID == "" {
		t.Fatalf("unexpected questions %+v", qs)
	}

	bank.Topics[0].Questions[0].Incorrect = nil
	if _, err := NewStoreFromBank(bank); err == nil {
		t.Fatalf("expected validation error for a question without incorrect answers")
	}
}
