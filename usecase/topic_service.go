package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// TopicService reads the question catalog. Catalogs are tried in order and
// the first usable one wins; failures are logged and never surface.
type TopicService struct {
	catalogs []repositories.TopicCatalog
	logger   *zap.Logger
}

// NewTopicService creates a topic service over one or more catalogs
func NewTopicService(logger *zap.Logger, catalogs ...repositories.TopicCatalog) *TopicService {
	return &TopicService{catalogs: catalogs, logger: logger}
}

// ListTopics returns the catalog topics, or an empty list when no catalog is usable
func (s *TopicService) ListTopics(ctx context.Context) []entities.Topic {
	for i, catalog := range s.catalogs {
		topics, err := catalog.ListTopics(ctx)
		if err != nil {
			s.logger.Warn("Topic catalog unavailable",
				zap.Int("catalog", i),
				zap.Error(err))
			continue
		}
		return topics
	}
	return []entities.Topic{}
}

// FindTopic returns the topic with the given ID. A topic without questions
// cannot start an interview.
func (s *TopicService) FindTopic(ctx context.Context, id string) (entities.Topic, error) {
	for _, topic := range s.ListTopics(ctx) {
		if topic.ID != id {
			continue
		}
		if !topic.Selectable() {
			return entities.Topic{}, fmt.Errorf("topic %s: %w", id, domain.ErrNoQuestions)
		}
		return topic, nil
	}
	return entities.Topic{}, fmt.Errorf("topic %s: %w", id, domain.ErrNotFound)
}
