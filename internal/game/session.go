// Package game implements a single player's quiz session: topic resolution, question
// delivery, timed answer capture, scoring, and finalization against a Gateway.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/scoring"
	"quiz-game-service/internal/validation"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the fixed rules of a session.
type Config struct {
	QuestionsPerSession int
	PoolLimit           int
	QuestionSeconds     int
	Mode                domain.Mode
	Outbox              OutboxConfig
}

// DefaultConfig is seven questions drawn from up to a hundred, ten seconds each.
func DefaultConfig() Config {
	return Config{
		QuestionsPerSession: 7,
		PoolLimit:           100,
		QuestionSeconds:     10,
		Mode:                domain.ModePractice,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QuestionsPerSession <= 0 {
		c.QuestionsPerSession = def.QuestionsPerSession
	}
	if c.PoolLimit < c.QuestionsPerSession {
		c.PoolLimit = def.PoolLimit
		if c.PoolLimit < c.QuestionsPerSession {
			c.PoolLimit = c.QuestionsPerSession
		}
	}
	if c.QuestionSeconds <= 0 {
		c.QuestionSeconds = def.QuestionSeconds
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	return c
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRand fixes the random source used for question and choice order.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) { s.rnd = rnd }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	ID          string                    `json:"id"`
	UserID      string                    `json:"userId"`
	Topic       domain.Topic              `json:"topic"`
	State       string                    `json:"state"`
	Index       int                       `json:"index"`
	Total       int                       `json:"total"`
	Score       int                       `json:"score"`
	Answers     []domain.AnsweredQuestion `json:"answers"`
	AwaitingAck bool                      `json:"awaitingAck"`
	StartedAt   time.Time                 `json:"startedAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
	Summary     *domain.Summary           `json:"summary,omitempty"`
}

// Session is the state machine for one playthrough. All transitions are serialized;
// a transition that is still waiting on the gateway makes others fail with ErrInvalidState.
type Session struct {
	gateway Gateway
	users   UserResolver
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger

	mu          sync.Mutex
	rnd         *rand.Rand
	state       State
	busy        bool
	discarded   bool
	id          string
	userID      string
	topic       domain.Topic
	questions   []domain.Question
	choices     [][]string
	index       int
	answers     []domain.AnsweredQuestion
	score       int
	awaitingAck bool
	startedAt   time.Time
	updatedAt   time.Time
	summary     *domain.Summary
	outbox      *outbox
}

// NewSession returns an idle session bound to gateway. users may be nil, in which case
// profile stats are never updated.
func NewSession(gateway Gateway, users UserResolver, cfg Config, opts ...Option) *Session {
	s := &Session{
		gateway: gateway,
		users:   users,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.updatedAt = s.now()
	return s
}

// ID returns the persisted session id, empty until Start succeeds.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// UserID returns the owning user.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdatedAt is the time of the last transition.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Start resolves the topic, draws the question set, and creates the session record.
func (s *Session) Start(ctx context.Context, topicSlug, userID string) (string, error) {
	if err := validation.ValidateSlug(topicSlug); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSlug, err)
	}

	s.mu.Lock()
	if s.state != StateIdle || s.busy || s.discarded {
		s.mu.Unlock()
		return "", domain.ErrInvalidState
	}
	s.busy = true
	s.mu.Unlock()

	id, err := s.start(ctx, topicSlug, userID)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	return id, err
}

func (s *Session) start(ctx context.Context, topicSlug, userID string) (string, error) {
	topic, err := s.gateway.FindTopicBySlug(ctx, topicSlug)
	if err != nil {
		if errors.Is(err, domain.ErrTopicNotFound) {
			return "", err
		}
		return "", domain.Persistence("find topic", err)
	}

	pool, err := s.gateway.ListQuestions(ctx, topic.ID, s.cfg.PoolLimit)
	if err != nil {
		return "", domain.Persistence("list questions", err)
	}
	if len(pool) == 0 {
		return "", domain.ErrNoQuestionsAvailable
	}
	if len(pool) < s.cfg.QuestionsPerSession {
		return "", fmt.Errorf("%w: topic %q has %d, need %d",
			domain.ErrNotEnoughQuestions, topicSlug, len(pool), s.cfg.QuestionsPerSession)
	}

	s.mu.Lock()
	questions := pick(s.rnd, pool, s.cfg.QuestionsPerSession)
	choices := make([][]string, len(questions))
	for i, q := range questions {
		choices[i] = shuffled(s.rnd, q.Choices())
	}
	s.mu.Unlock()

	id, err := s.gateway.CreateSession(ctx, userID, topic.ID, s.cfg.Mode)
	if err != nil {
		return "", domain.Persistence("create session", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.id = id
	s.userID = userID
	s.topic = topic
	s.questions = questions
	s.choices = choices
	s.index = 0
	s.answers = make([]domain.AnsweredQuestion, 0, len(questions))
	s.score = 0
	s.awaitingAck = false
	s.startedAt = now
	s.updatedAt = now
	s.outbox = newOutbox(s.gateway, id, len(questions), s.cfg.Outbox, s.logger)
	s.state = StateInProgress
	if s.discarded {
		s.outbox.abandon()
	}
	return id, nil
}

// CurrentQuestion returns the question awaiting an answer.
func (s *Session) CurrentQuestion() (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.discarded {
		return domain.QuestionView{}, domain.ErrInvalidState
	}
	if s.awaitingAck {
		return domain.QuestionView{}, domain.ErrAnswerPending
	}
	if s.index >= len(s.questions) {
		return domain.QuestionView{}, fmt.Errorf("%w: all questions answered", domain.ErrInvalidState)
	}
	q := s.questions[s.index]
	return domain.QuestionView{
		SessionID:        s.id,
		QuestionID:       q.ID,
		Number:           s.index + 1,
		Total:            len(s.questions),
		Text:             q.Text,
		Choices:          append([]string(nil), s.choices[s.index]...),
		TimeLimitSeconds: s.cfg.QuestionSeconds,
		Score:            s.score,
	}, nil
}

// SubmitAnswer scores answer against the current question and advances the index.
// The answer row is queued for delivery; local state is authoritative.
func (s *Session) SubmitAnswer(answer string, elapsedMs int64) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.busy || s.discarded {
		return domain.AnswerResult{}, domain.ErrInvalidState
	}
	if s.awaitingAck {
		return domain.AnswerResult{}, domain.ErrAnswerPending
	}
	if s.index >= len(s.questions) {
		return domain.AnswerResult{}, fmt.Errorf("%w: all questions answered", domain.ErrInvalidState)
	}

	q := s.questions[s.index]
	correct := answer != "" && answer == q.CorrectAnswer
	points := scoring.Score(correct, elapsedMs)
	now := s.now()
	record := domain.AnsweredQuestion{
		QuestionID: q.ID,
		Answer:     answer,
		Correct:    correct,
		ElapsedMs:  elapsedMs,
		Points:     points,
		AnsweredAt: now,
	}

	s.answers = append(s.answers, record)
	s.score += points
	s.index++
	s.awaitingAck = true
	s.updatedAt = now
	s.outbox.enqueue(record)

	return domain.AnswerResult{
		QuestionID:    q.ID,
		Correct:       correct,
		Points:        points,
		TotalScore:    s.score,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Answered:      s.index,
		Remaining:     len(s.questions) - s.index,
	}, nil
}

// Advance acknowledges the last result so the next question can be shown.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.busy || s.discarded || !s.awaitingAck {
		return domain.ErrInvalidState
	}
	s.awaitingAck = false
	s.updatedAt = s.now()
	return nil
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle && s.index >= len(s.questions)
}

// Finish computes the summary, flushes pending answers, writes the completion, and
// credits the signed-in user's profile. The summary is always returned once computed;
// a failed completion write is reported as a *domain.PersistenceError next to it.
// Profile update failures are logged only.
func (s *Session) Finish(ctx context.Context) (domain.Summary, error) {
	s.mu.Lock()
	switch {
	case s.id == "" || s.state == StateIdle:
		s.mu.Unlock()
		return domain.Summary{}, domain.ErrNoActiveSession
	case s.state != StateInProgress || s.busy || s.discarded:
		s.mu.Unlock()
		return domain.Summary{}, domain.ErrInvalidState
	}
	s.busy = true
	now := s.now()
	correct := 0
	for _, a := range s.answers {
		if a.Correct {
			correct++
		}
	}
	summary := domain.Summary{
		SessionID:         s.id,
		Score:             s.score,
		CorrectCount:      correct,
		QuestionsAnswered: len(s.answers),
		TotalTimeSeconds:  int(now.Sub(s.startedAt) / time.Second),
		XPEarned:          scoring.XPForSession(s.score),
	}
	id, ob := s.id, s.outbox
	s.mu.Unlock()

	if err := ob.close(ctx); err != nil {
		s.logger.Warn("answers not fully persisted before completion", "session_id", id, "error", err)
	}

	var finishErr error
	err := s.gateway.CompleteSession(ctx, id, domain.Completion{
		Score:             summary.Score,
		XPEarned:          summary.XPEarned,
		QuestionsAnswered: summary.QuestionsAnswered,
		CorrectCount:      summary.CorrectCount,
		TotalTimeSeconds:  summary.TotalTimeSeconds,
		CompletedAt:       now,
	})
	if err != nil {
		finishErr = domain.Persistence("complete session", err)
		s.logger.Error("session completion write failed", "session_id", id, "error", err)
	}

	s.creditProfile(ctx, id, summary)

	s.mu.Lock()
	s.state = StateComplete
	s.busy = false
	s.awaitingAck = false
	s.summary = &summary
	s.updatedAt = s.now()
	s.mu.Unlock()

	return summary, finishErr
}

func (s *Session) creditProfile(ctx context.Context, sessionID string, summary domain.Summary) {
	if s.users == nil {
		return
	}
	userID, ok, err := s.users.CurrentUserID(ctx)
	if err != nil {
		s.logger.Warn("current user lookup failed, profile not updated", "session_id", sessionID, "error", err)
		return
	}
	if !ok || userID == "" {
		return
	}
	err = s.gateway.IncrementProfileStats(ctx, userID, domain.StatsDelta{
		XP:        summary.XPEarned,
		Questions: summary.QuestionsAnswered,
		Correct:   summary.CorrectCount,
	})
	if err != nil {
		s.logger.Warn("profile stats update failed", "session_id", sessionID, "user_id", userID, "error", err)
	}
}

// Discard releases the session without completing it. Queued answers still drain.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return
	}
	s.discarded = true
	if s.outbox != nil && s.state == StateInProgress && !s.busy {
		s.outbox.abandon()
	}
}

// Summary returns the final summary once the session is complete.
func (s *Session) Summary() (domain.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return domain.Summary{}, false
	}
	return *s.summary, true
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		UserID:      s.userID,
		Topic:       s.topic,
		State:       s.state.String(),
		Index:       s.index,
		Total:       len(s.questions),
		Score:       s.score,
		Answers:     append([]domain.AnsweredQuestion(nil), s.answers...),
		AwaitingAck: s.awaitingAck,
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}
	return snap
}

// pick draws n questions uniformly without replacement using a partial Fisher-Yates.
func pick(rnd *rand.Rand, pool []domain.Question, n int) []domain.Question {
	cp := append([]domain.Question(nil), pool...)
	if n > len(cp) {
		n = len(cp)
	}
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:n:n]
}

func shuffled(rnd *rand.Rand, items []string) []string {
	out := append([]string(nil), items...)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
