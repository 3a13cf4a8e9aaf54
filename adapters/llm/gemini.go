package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.2
	defaultTopP           = 0.95
	defaultTopK           = 40
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 30
	defaultMaxRetries     = 3
)

// GeminiConfig holds configuration for the Gemini adapter. APIKey is required;
// zero values fall back to defaults.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	TimeoutSeconds  int
	MaxRetries      int
	// SystemPrompt is sent as the system instruction of every request
	SystemPrompt string
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	timeout         time.Duration
	maxRetries      int
	systemPrompt    string
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries must be positive, got %d", config.MaxRetries)
	}
	return nil
}

// NewGeminiConfigFromEnv reads GEMINI_API_KEY and GEMINI_MODEL
func NewGeminiConfigFromEnv() GeminiConfig {
	return GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
}

// applyDefaults fills zero fields and logs every default it applies
func applyDefaults(config GeminiConfig, logger *zap.Logger) GeminiConfig {
	if config.Model == "" {
		config.Model = defaultModel
		logger.Info("Using default model", zap.String("model", config.Model))
	}
	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", config.Temperature))
	}
	if config.TopP == 0 {
		config.TopP = defaultTopP
		logger.Info("Using default topP", zap.Float32("topP", config.TopP))
	}
	if config.TopK == 0 {
		config.TopK = defaultTopK
		logger.Info("Using default topK", zap.Float32("topK", config.TopK))
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = defaultMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", config.MaxOutputTokens))
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", config.TimeoutSeconds))
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	return config
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	config = applyDefaults(config, logger)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           config.Model,
		temperature:     config.Temperature,
		topP:            config.TopP,
		topK:            config.TopK,
		maxOutputTokens: config.MaxOutputTokens,
		timeout:         time.Duration(config.TimeoutSeconds) * time.Second,
		maxRetries:      config.MaxRetries,
		systemPrompt:    config.SystemPrompt,
	}, nil
}

// Generate sends a single prompt and returns the concatenated text parts.
// Transient failures are retried with a linear backoff.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopP:            genai.Ptr(g.topP),
		TopK:            genai.Ptr(g.topK),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}
	if g.systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(g.systemPrompt, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < g.maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("failed to generate content: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(response)
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}

	g.logger.Debug("Content generated",
		zap.Int("promptLength", len(prompt)),
		zap.Int("responseLength", len(text)))
	return text, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
