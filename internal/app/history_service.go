package app

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/scoring"
)

// HistoryStore reads finished games and player profiles.
type HistoryStore interface {
	// ListCompletedSessions returns completed sessions, most recently completed first.
	ListCompletedSessions(ctx context.Context, userID string, limit int) ([]domain.SessionRecord, error)
	GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error)
	// ListAnswers returns a session's answers in the order they were given.
	ListAnswers(ctx context.Context, sessionID string) ([]domain.AnsweredQuestion, error)
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryService serves results, history and profile pages.
type HistoryService struct {
	history HistoryStore
	catalog Catalog
}

func NewHistoryService(history HistoryStore, catalog Catalog) *HistoryService {
	return &HistoryService{history: history, catalog: catalog}
}

// ProfileView is a profile with its position on the level curve.
type ProfileView struct {
	domain.Profile
	Progress scoring.LevelProgress `json:"progress"`
}

// History lists the user's completed games with their topics.
func (s *HistoryService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	sessions, err := s.history.ListCompletedSessions(ctx, userID, limit)
	if err != nil {
		return nil, domain.Persistence("list sessions", err)
	}

	topics := make(map[string]domain.Topic)
	entries := make([]domain.HistoryEntry, 0, len(sessions))
	for _, rec := range sessions {
		topic, ok := topics[rec.TopicID]
		if !ok {
			topic, err = s.catalog.TopicByID(ctx, rec.TopicID)
			if err != nil && !errors.Is(err, domain.ErrTopicNotFound) {
				return nil, domain.Persistence("find topic", err)
			}
			topics[rec.TopicID] = topic
		}
		entries = append(entries, domain.HistoryEntry{Session: rec, Topic: topic})
	}
	return entries, nil
}

// Recent returns the user's latest completed game; ok is false when there is none.
func (s *HistoryService) Recent(ctx context.Context, userID string) (domain.HistoryEntry, bool, error) {
	entries, err := s.History(ctx, userID, 1)
	if err != nil || len(entries) == 0 {
		return domain.HistoryEntry{}, false, err
	}
	return entries[0], true, nil
}

// Results loads a finished session with its topic and every answer reviewed against
// the original question.
func (s *HistoryService) Results(ctx context.Context, sessionID, userID string) (domain.SessionResult, error) {
	rec, err := s.history.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return domain.SessionResult{}, err
		}
		return domain.SessionResult{}, domain.Persistence("get session", err)
	}
	if rec.UserID != userID {
		return domain.SessionResult{}, domain.ErrForbidden
	}

	var (
		topic   domain.Topic
		answers []domain.AnsweredQuestion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.catalog.TopicByID(gctx, rec.TopicID)
		if err != nil && !errors.Is(err, domain.ErrTopicNotFound) {
			return domain.Persistence("find topic", err)
		}
		topic = t
		return nil
	})
	g.Go(func() error {
		a, err := s.history.ListAnswers(gctx, sessionID)
		if err != nil {
			return domain.Persistence("list answers", err)
		}
		answers = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.SessionResult{}, err
	}

	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	byID := make(map[string]domain.Question, len(ids))
	if len(ids) > 0 {
		questions, err := s.catalog.QuestionsByIDs(ctx, ids)
		if err != nil {
			return domain.SessionResult{}, domain.Persistence("load questions", err)
		}
		for _, q := range questions {
			byID[q.ID] = q
		}
	}

	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].AnsweredAt.Before(answers[j].AnsweredAt)
	})
	reviews := make([]domain.AnswerReview, 0, len(answers))
	for _, a := range answers {
		q := byID[a.QuestionID]
		reviews = append(reviews, domain.AnswerReview{
			AnsweredQuestion: a,
			QuestionText:     q.Text,
			CorrectAnswer:    q.CorrectAnswer,
			IncorrectAnswers: q.IncorrectAnswers,
			Explanation:      q.Explanation,
		})
	}
	return domain.SessionResult{Session: rec, Topic: topic, Answers: reviews}, nil
}

// Profile returns the user's aggregate stats. A user with no finished games gets an
// empty level 1 profile.
func (s *HistoryService) Profile(ctx context.Context, userID string) (ProfileView, error) {
	profile, err := s.history.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return ProfileView{}, domain.Persistence("get profile", err)
		}
		profile = domain.Profile{UserID: userID}
	}
	progress := scoring.Level(profile.TotalXP)
	profile.Level = progress.Level
	return ProfileView{Profile: profile, Progress: progress}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrTopicNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrProfileNotFound)
}
