package game

import (
	"context"

	"quiz-game-service/internal/domain"
)

// Gateway is the persistence boundary a session talks to.
// FindTopicBySlug must return domain.ErrTopicNotFound when nothing matches.
// IncrementProfileStats must apply the delta atomically on the store side.
type Gateway interface {
	FindTopicBySlug(ctx context.Context, slug string) (domain.Topic, error)
	ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error)
	CreateSession(ctx context.Context, userID, topicID string, mode domain.Mode) (string, error)
	InsertAnswer(ctx context.Context, sessionID string, answer domain.AnsweredQuestion) error
	CompleteSession(ctx context.Context, sessionID string, completion domain.Completion) error
	IncrementProfileStats(ctx context.Context, userID string, delta domain.StatsDelta) error
}

// UserResolver identifies the authenticated user. ok is false when nobody is signed in.
type UserResolver interface {
	CurrentUserID(ctx context.Context) (userID string, ok bool, err error)
}

// UserResolverFunc adapts a function to UserResolver.
type UserResolverFunc func(ctx context.Context) (string, bool, error)

func (f UserResolverFunc) CurrentUserID(ctx context.Context) (string, bool, error) {
	return f(ctx)
}

type answerWriter interface {
	InsertAnswer(ctx context.Context, sessionID string, answer domain.AnsweredQuestion) error
}
