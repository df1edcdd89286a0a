package app

import (
	"context"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

// QuestionSource serves a topic's question pool, usually from a cache.
type QuestionSource interface {
	ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error)
}

type cachedGateway struct {
	game.Gateway
	questions QuestionSource
}

// WithQuestionCache returns a gateway whose question pool reads go through source.
// Every other call goes to gateway unchanged.
func WithQuestionCache(gateway game.Gateway, source QuestionSource) game.Gateway {
	if source == nil {
		return gateway
	}
	return cachedGateway{Gateway: gateway, questions: source}
}

func (g cachedGateway) ListQuestions(ctx context.Context, topicID string, limit int) ([]domain.Question, error) {
	return g.questions.ListQuestions(ctx, topicID, limit)
}
