package repositories

import (
	"context"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

// TopicCatalog lists the topics a candidate can pick from
type TopicCatalog interface {
	ListTopics(ctx context.Context) ([]entities.Topic, error)
}
