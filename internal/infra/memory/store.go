package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/scoring"
)

// Store keeps topics, questions, sessions, answers and profiles in maps. It serves as the
// game gateway, catalog and history store for tests and the demo server.
type Store struct {
	now func() time.Time

	mu        sync.RWMutex
	topics    map[string]domain.Topic
	slugs     map[string]string
	questions map[string][]domain.Question
	sessions  map[string]domain.SessionRecord
	answers   map[string][]domain.AnsweredQuestion
	profiles  map[string]domain.Profile
}

func NewStore() *Store {
	return &Store{
		now:       time.Now,
		topics:    make(map[string]domain.Topic),
		slugs:     make(map[string]string),
		questions: make(map[string][]domain.Question),
		sessions:  make(map[string]domain.SessionRecord),
		answers:   make(map[string][]domain.AnsweredQuestion),
		profiles:  make(map[string]domain.Profile),
	}
}

// NewStoreFromBank seeds a store from a question bank.
func NewStoreFromBank(bank domain.QuestionBank) (*Store, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	s := NewStore()
	for _, bt := range bank.Topics {
		questions := make([]domain.Question, 0, len(bt.Questions))
		for _, bq := range bt.Questions {
			questions = append(questions, domain.Question{
				Text:             bq.Text,
				CorrectAnswer:    bq.Correct,
				IncorrectAnswers: append([]string(nil), bq.Incorrect...),
				Explanation:      bq.Explanation,
			})
		}
		s.AddTopic(domain.Topic{
			Slug:        bt.Slug,
			Name:        bt.Name,
			Description: bt.Description,
			Category:    bt.Category,
			Difficulty:  bt.Difficulty,
		}, questions)
	}
	return s, nil
}

// AddTopic stores a topic with its questions, assigning ids where missing, and returns
// the stored topic.
func (s *Store) AddTopic(topic domain.Topic, questions []domain.Question) domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		questions[i].TopicID = topic.ID
	}
	s.topics[topic.ID] = topic
	s.slugs[topic.Slug] = topic.ID
	s.questions[topic.ID] = append(s.questions[topic.ID], questions...)
	return topic
}

func (s *Store) FindTopicBySlug(_ context.Context, slug string) (domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slug]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return s.topics[id], nil
}

func (s *Store) TopicByID(_ context.Context, topicID string) (domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := s.topics[topicID]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return topic, nil
}

func (s *Store) ListQuestions(_ context.Context, topicID string, limit int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool := s.questions[topicID]
	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}
	return append([]domain.Question(nil), pool...), nil
}

func (s *Store) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, pool := range s.questions {
		for _, q := range pool {
			if want[q.ID] {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (s *Store) ListTopics(_ context.Context, category string) ([]domain.Topic, error) {
	s.mu.RLock()
	out := make([]domain.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]bool)
	for _, t := range s.topics {
		if t.Category != "" {
			seen[t.Category] = true
		}
	}
	s.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) FeaturedTopics(ctx context.Context, limit int) ([]domain.Topic, error) {
	topics, _ := s.ListTopics(ctx, "")
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].PlayCount > topics[j].PlayCount })
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

// CreateSession records a new session and counts a play for the topic.
func (s *Store) CreateSession(_ context.Context, userID, topicID string, mode domain.Mode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[topicID]
	if !ok {
		return "", domain.ErrTopicNotFound
	}
	id := uuid.NewString()
	s.sessions[id] = domain.SessionRecord{
		ID:        id,
		UserID:    userID,
		TopicID:   topicID,
		Mode:      mode,
		StartedAt: s.now(),
	}
	topic.PlayCount++
	s.topics[topicID] = topic
	return id, nil
}

func (s *Store) InsertAnswer(_ context.Context, sessionID string, answer domain.AnsweredQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.answers[sessionID] = append(s.answers[sessionID], answer)
	return nil
}

// CompleteSession writes the final figures once; a second call fails with ErrSessionCompleted.
func (s *Store) CompleteSession(_ context.Context, sessionID string, c domain.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.Completed {
		return domain.ErrSessionCompleted
	}
	completedAt := c.CompletedAt
	rec.Score = c.Score
	rec.XPEarned = c.XPEarned
	rec.QuestionsAnswered = c.QuestionsAnswered
	rec.CorrectCount = c.CorrectCount
	rec.TotalTimeSeconds = c.TotalTimeSeconds
	rec.Completed = true
	rec.CompletedAt = &completedAt
	s.sessions[sessionID] = rec
	return nil
}

// IncrementProfileStats adds delta to the profile under the store lock and recomputes
// the level, creating the profile on first use.
func (s *Store) IncrementProfileStats(_ context.Context, userID string, delta domain.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = domain.Profile{UserID: userID}
	}
	p.TotalXP += delta.XP
	p.GamesPlayed++
	p.QuestionsAnswered += delta.Questions
	p.CorrectAnswers += delta.Correct
	p.Level = scoring.Level(p.TotalXP).Level
	p.UpdatedAt = s.now()
	s.profiles[userID] = p
	return nil
}

func (s *Store) ListCompletedSessions(_ context.Context, userID string, limit int) ([]domain.SessionRecord, error) {
	s.mu.RLock()
	var out []domain.SessionRecord
	for _, rec := range s.sessions {
		if rec.UserID == userID && rec.Completed {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return rec, nil
}

func (s *Store) ListAnswers(_ context.Context, sessionID string) ([]domain.AnsweredQuestion, error) {
	s.mu.RLock()
	out := append([]domain.AnsweredQuestion(nil), s.answers[sessionID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].AnsweredAt.Before(out[j].AnsweredAt) })
	return out, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}
