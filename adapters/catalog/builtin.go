package catalog

import (
	"context"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// BuiltinCatalog serves a small fixed question pack, used when no catalog is configured
type BuiltinCatalog struct{}

var _ repositories.TopicCatalog = BuiltinCatalog{}

var builtinTopics = []entities.Topic{
	{
		ID:       "arrays",
		Topic:    "Arrays",
		Category: "Data Structures",
		Questions: []string{
			"What is Big-O?",
			"Reverse an array",
		},
	},
	{
		ID:       "hash-maps",
		Topic:    "Hash Maps",
		Category: "Data Structures",
		Questions: []string{
			"How does a hash map resolve collisions?",
			"When would you pick a tree map over a hash map?",
			"What is the load factor and why does it matter?",
		},
	},
	{
		ID:       "concurrency",
		Topic:    "Concurrency",
		Category: "Systems",
		Questions: []string{
			"What is the difference between concurrency and parallelism?",
			"How would you detect a deadlock?",
			"Explain what a race condition is with an example.",
		},
	},
	{
		ID:       "behavioral",
		Topic:    "Behavioral",
		Category: "General",
		Questions: []string{
			"Tell me about a project you are proud of.",
			"Describe a time you disagreed with a teammate and how you resolved it.",
		},
	},
}

// ListTopics implements repositories.TopicCatalog
func (BuiltinCatalog) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	topics := make([]entities.Topic, len(builtinTopics))
	for i, t := range builtinTopics {
		t.Questions = append([]string(nil), t.Questions...)
		topics[i] = t
	}
	return topics, nil
}
