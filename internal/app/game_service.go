package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

// SessionRepository abstracts where live game sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *game.Session)
	Get(sessionID string) (*game.Session, bool)
	// Touch records that a session changed state.
	Touch(session *game.Session)
	Delete(sessionID string)
	Range(fn func(session *game.Session) bool)
}

// AnswerLimiter throttles answer submissions per user. Allow returns domain.ErrRateLimited
// when the user is over the limit.
type AnswerLimiter interface {
	Allow(ctx context.Context, userID string) error
}

// GameService contains the play use cases on top of game.Session.
type GameService struct {
	sessions SessionRepository
	gateway  game.Gateway
	users    game.UserResolver
	cfg      game.Config
	limiter  AnswerLimiter
	logger   *slog.Logger
	opts     []game.Option
}

// GameOption customizes a GameService.
type GameOption func(*GameService)

// WithAnswerLimiter throttles Answer calls.
func WithAnswerLimiter(limiter AnswerLimiter) GameOption {
	return func(s *GameService) { s.limiter = limiter }
}

// WithSessionOptions passes options to every session the service creates.
func WithSessionOptions(opts ...game.Option) GameOption {
	return func(s *GameService) { s.opts = append(s.opts, opts...) }
}

// WithGameLogger sets the service logger.
func WithGameLogger(logger *slog.Logger) GameOption {
	return func(s *GameService) {
		s.logger = logger
		s.opts = append(s.opts, game.WithLogger(logger))
	}
}

func NewGameService(sessions SessionRepository, gateway game.Gateway, users game.UserResolver, cfg game.Config, opts ...GameOption) *GameService {
	s := &GameService{
		sessions: sessions,
		gateway:  gateway,
		users:    users,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Started is the result of a successful Start.
type Started struct {
	SessionID string              `json:"sessionId"`
	Topic     domain.Topic        `json:"topic"`
	Question  domain.QuestionView `json:"question"`
}

// Start creates a session for userID on the topic and returns its first question.
func (s *GameService) Start(ctx context.Context, topicSlug, userID string) (Started, error) {
	if userID == "" {
		return Started{}, domain.ErrUnauthenticated
	}
	session := game.NewSession(s.gateway, s.users, s.cfg, s.opts...)
	id, err := session.Start(ctx, topicSlug, userID)
	if err != nil {
		return Started{}, err
	}
	s.sessions.Put(session)

	view, err := session.CurrentQuestion()
	if err != nil {
		return Started{}, err
	}
	s.logger.Info("game started", "session_id", id, "user_id", userID, "topic", topicSlug)
	return Started{SessionID: id, Topic: session.Snapshot().Topic, Question: view}, nil
}

// Question returns the question currently awaiting an answer.
func (s *GameService) Question(_ context.Context, sessionID, userID string) (domain.QuestionView, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return session.CurrentQuestion()
}

// Answer records an answer for the current question.
func (s *GameService) Answer(ctx context.Context, sessionID, userID, answer string, elapsedMs int64) (domain.AnswerResult, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, userID); err != nil {
			return domain.AnswerResult{}, err
		}
	}
	res, err := session.SubmitAnswer(answer, elapsedMs)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.sessions.Touch(session)
	return res, nil
}

// Expire records a timed-out question as an empty answer. It is not rate limited.
func (s *GameService) Expire(_ context.Context, sessionID, userID string, elapsedMs int64) (domain.AnswerResult, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	res, err := session.SubmitAnswer("", elapsedMs)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.sessions.Touch(session)
	return res, nil
}

// Advance acknowledges the last result. It returns the next question, or ok=false when
// every question has been answered.
func (s *GameService) Advance(_ context.Context, sessionID, userID string) (domain.QuestionView, bool, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return domain.QuestionView{}, false, err
	}
	if err := session.Advance(); err != nil {
		return domain.QuestionView{}, false, err
	}
	s.sessions.Touch(session)
	if session.Done() {
		return domain.QuestionView{}, false, nil
	}
	view, err := session.CurrentQuestion()
	if err != nil {
		return domain.QuestionView{}, false, err
	}
	return view, true, nil
}

// Finish completes the session. A *domain.PersistenceError may accompany a valid summary.
func (s *GameService) Finish(ctx context.Context, sessionID, userID string) (domain.Summary, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return domain.Summary{}, err
	}
	summary, err := session.Finish(ctx)
	var perr *domain.PersistenceError
	if err == nil || errors.As(err, &perr) {
		s.sessions.Touch(session)
		s.logger.Info("game finished",
			"session_id", sessionID,
			"user_id", userID,
			"score", summary.Score,
			"correct", summary.CorrectCount,
			"xp", summary.XPEarned,
		)
	}
	return summary, err
}

// Snapshot returns the state of a live session.
func (s *GameService) Snapshot(_ context.Context, sessionID, userID string) (game.Snapshot, error) {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Abandon drops a live session without writing a completion.
func (s *GameService) Abandon(_ context.Context, sessionID, userID string) error {
	session, err := s.lookup(sessionID, userID)
	if err != nil {
		return err
	}
	session.Discard()
	s.sessions.Delete(sessionID)
	return nil
}

// ReapIdle drops sessions whose last transition is older than ttl and returns how many
// were removed. In-progress sessions are discarded without a completion write.
func (s *GameService) ReapIdle(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)
	var stale []*game.Session
	s.sessions.Range(func(session *game.Session) bool {
		if session.UpdatedAt().Before(cutoff) {
			stale = append(stale, session)
		}
		return true
	})
	for _, session := range stale {
		state := session.State()
		session.Discard()
		s.sessions.Delete(session.ID())
		s.logger.Info("idle game reaped", "session_id", session.ID(), "state", state.String())
	}
	return len(stale)
}

func (s *GameService) lookup(sessionID, userID string) (*game.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.UserID() != userID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}
