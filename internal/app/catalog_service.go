package app

import (
	"context"
	"fmt"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/validation"
)

// FeaturedLimit is the number of topics shown as featured.
const FeaturedLimit = 6

// Catalog reads topics and questions.
type Catalog interface {
	FindTopicBySlug(ctx context.Context, slug string) (domain.Topic, error)
	TopicByID(ctx context.Context, topicID string) (domain.Topic, error)
	// ListTopics returns topics ordered by name; an empty category matches all.
	ListTopics(ctx context.Context, category string) ([]domain.Topic, error)
	// ListCategories returns the distinct non-empty categories in ascending order.
	ListCategories(ctx context.Context) ([]string, error)
	// FeaturedTopics returns the most played topics first.
	FeaturedTopics(ctx context.Context, limit int) ([]domain.Topic, error)
	QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// CatalogService serves the topic browsing use cases.
type CatalogService struct {
	catalog Catalog
}

func NewCatalogService(catalog Catalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) Topics(ctx context.Context, category string) ([]domain.Topic, error) {
	topics, err := s.catalog.ListTopics(ctx, validation.SanitizeInput(category))
	if err != nil {
		return nil, domain.Persistence("list topics", err)
	}
	return topics, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, domain.Persistence("list categories", err)
	}
	return categories, nil
}

func (s *CatalogService) Featured(ctx context.Context) ([]domain.Topic, error) {
	topics, err := s.catalog.FeaturedTopics(ctx, FeaturedLimit)
	if err != nil {
		return nil, domain.Persistence("featured topics", err)
	}
	return topics, nil
}

// Topic looks a topic up by slug.
func (s *CatalogService) Topic(ctx context.Context, slug string) (domain.Topic, error) {
	if err := validation.ValidateSlug(slug); err != nil {
		return domain.Topic{}, fmt.Errorf("%w: %v", domain.ErrInvalidSlug, err)
	}
	topic, err := s.catalog.FindTopicBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return domain.Topic{}, err
		}
		return domain.Topic{}, domain.Persistence("find topic", err)
	}
	return topic, nil
}
