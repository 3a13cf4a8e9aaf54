package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "pcm_24000"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the interviewer voice.
// APIKey is required; every other field falls back to a default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	LanguageCode string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
	HTTPClient   *http.Client
}

// ElevenLabsTTS voices the interviewer through the Eleven Labs streaming API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	languageCode string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	client       *http.Client
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type synthesisRequest struct {
	Text                   string        `json:"text"`
	ModelID                string        `json:"model_id"`
	LanguageCode           string        `json:"language_code,omitempty"`
	VoiceSettings          voiceSettings `json:"voice_settings"`
	ApplyTextNormalization string        `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	t := &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   strings.TrimRight(config.APIBaseURL, "/"),
		voiceID:      config.VoiceID,
		modelID:      config.ModelID,
		languageCode: config.LanguageCode,
		outputFormat: config.OutputFormat,
		chunkSize:    config.ChunkSize,
		stability:    config.Stability,
		clarity:      config.Clarity,
		client:       config.HTTPClient,
		logger:       logger,
	}

	if t.apiBaseURL == "" {
		t.apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", t.apiBaseURL))
	}
	if t.voiceID == "" {
		t.voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", t.voiceID))
	}
	if t.modelID == "" {
		t.modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", t.modelID))
	}
	if t.outputFormat == "" {
		t.outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", t.outputFormat))
	}
	if t.chunkSize == 0 {
		t.chunkSize = defaultChunkSize
	}
	if t.stability == 0 {
		t.stability = defaultStability
	}
	if t.clarity == 0 {
		t.clarity = defaultClarity
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: defaultTimeout}
	}

	return t, nil
}

// OutputFormat returns the audio format of synthesized chunks
func (e *ElevenLabsTTS) OutputFormat() string {
	return e.outputFormat
}

// ConvertTextToSpeech requests synthesis and streams the audio body in chunks.
// HTTP failures are returned before any audio is produced.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	body, err := json.Marshal(synthesisRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           e.languageCode,
		ApplyTextNormalization: "auto",
		VoiceSettings: voiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	accept := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		accept = "audio/pcm"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Synthesizing interviewer speech",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", e.voiceID))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("eleven labs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	audio := make(chan []byte, 10)
	go e.stream(ctx, resp.Body, audio)
	return audio, nil
}

func (e *ElevenLabsTTS) stream(ctx context.Context, body io.ReadCloser, audio chan<- []byte) {
	defer close(audio)
	defer body.Close()

	buffer := make([]byte, e.chunkSize)
	total := 0
	for {
		n, err := body.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			total += n

			select {
			case audio <- chunk:
			case <-ctx.Done():
				e.logger.Debug("Speech stream cancelled", zap.Int("totalBytes", total))
				return
			}
		}
		if err == io.EOF {
			e.logger.Debug("Finished streaming speech", zap.Int("totalBytes", total))
			return
		}
		if err != nil {
			e.logger.Warn("Error reading speech stream", zap.Error(err))
			return
		}
	}
}

// NewElevenLabsConfigFromEnv reads ELEVEN_LABS_* variables
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		LanguageCode: os.Getenv("ELEVEN_LABS_LANGUAGE_CODE"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}

	if v := os.Getenv("ELEVEN_LABS_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ChunkSize = n
		}
	}
	if v := os.Getenv("ELEVEN_LABS_STABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			config.Stability = f
		}
	}
	if v := os.Getenv("ELEVEN_LABS_CLARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			config.Clarity = f
		}
	}

	return config
}
