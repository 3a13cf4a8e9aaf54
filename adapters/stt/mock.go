package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// MockSpeechToText treats every audio frame as UTF-8 text. Clients without a
// real microphone can send typed answers through the audio path.
type MockSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

// InitTranscribeStreaming creates a new mock streaming session
func (m *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	m.logger.Debug("Initializing mock streaming transcription", zap.String("language", config.Language))
	return &MockSpeechToTextStream{logger: m.logger}, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (m *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	stream, _ := m.InitTranscribeStreaming(ctx, config)
	if err := stream.Stream(audioData); err != nil {
		return "", err
	}
	return stream.End()
}

// MockSpeechToTextStream accumulates frames until End
type MockSpeechToTextStream struct {
	logger *zap.Logger

	mu  sync.Mutex
	buf strings.Builder
}

// Stream implements repositories.SpeechToTextStreaming
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Write(data)
	return nil
}

// End implements repositories.SpeechToTextStreaming
func (m *MockSpeechToTextStream) End() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text := strings.TrimSpace(m.buf.String())
	if text == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}
	m.logger.Debug("Mock transcription finished", zap.String("result", text))
	return text, nil
}
