package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
)

// normalize converts a decoded catalog document into topics. The document may
// be a list of topics or an object wrapping one under "topics" or "data".
// Entries with a missing or malformed question list keep an empty list.
func normalize(doc any) ([]entities.Topic, error) {
	items, ok := doc.([]any)
	if !ok {
		obj, isObj := doc.(map[string]any)
		if !isObj {
			return nil, fmt.Errorf("%w: expected a list of topics, got %T", domain.ErrInvalidCatalog, doc)
		}
		for _, key := range []string{"topics", "data"} {
			if list, found := obj[key].([]any); found {
				items, ok = list, true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: no topic list in document", domain.ErrInvalidCatalog)
		}
	}

	topics := make([]entities.Topic, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}

		topic := entities.Topic{
			ID:        stringField(fields["id"]),
			Topic:     strings.TrimSpace(stringField(fields["topic"])),
			Category:  strings.TrimSpace(stringField(fields["category"])),
			Questions: questionsField(fields["questions"]),
		}
		if topic.Topic == "" {
			topic.Topic = strings.TrimSpace(stringField(fields["name"]))
		}
		if topic.ID == "" {
			topic.ID = strconv.Itoa(i + 1)
		}
		if topic.Topic == "" {
			continue
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func questionsField(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	questions := make([]string, 0, len(list))
	for _, q := range list {
		if s, ok := q.(string); ok && strings.TrimSpace(s) != "" {
			questions = append(questions, strings.TrimSpace(s))
		}
	}
	return questions
}
