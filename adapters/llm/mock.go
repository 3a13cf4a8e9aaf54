package llm

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MockLLM answers prompts without a remote model. Respond decides the reply;
// the default produces a lenient evaluation payload.
type MockLLM struct {
	logger  *zap.Logger
	respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// NewMockLLM creates a mock model. A nil respond uses the built-in replies.
func NewMockLLM(logger *zap.Logger, respond func(prompt string) (string, error)) *MockLLM {
	if respond == nil {
		respond = defaultMockReply
	}
	return &MockLLM{logger: logger, respond: respond}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	m.logger.Debug("Mock LLM generating", zap.Int("promptLength", len(prompt)))
	return m.respond(prompt)
}

// Prompts returns every prompt received so far
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func defaultMockReply(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, `"isCorrect"`):
		return "```json\n{\"score\": 6, \"isCorrect\": true, \"feedback\": \"Reasonable answer.\", \"improvement\": \"Add a concrete example.\"}\n```", nil
	case strings.Contains(prompt, "follow-up"):
		return "Can you walk through an example?", nil
	default:
		return "A strong answer defines the concept, gives an example and discusses trade-offs.", nil
	}
}
