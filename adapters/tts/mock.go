package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MockTextToSpeech "synthesizes" text by streaming its bytes back in chunks.
// Used in development and tests when no voice provider is configured.
type MockTextToSpeech struct {
	chunkSize int
	logger    *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		chunkSize: 16,
		logger:    logger,
	}
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (m *MockTextToSpeech) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Debug("Mock synthesizing speech", zap.Int("textLength", len(text)))

	data := []byte(text)
	audio := make(chan []byte, len(data)/m.chunkSize+1)
	go func() {
		defer close(audio)
		for start := 0; start < len(data); start += m.chunkSize {
			end := start + m.chunkSize
			if end > len(data) {
				end = len(data)
			}
			select {
			case audio <- data[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return audio, nil
}
