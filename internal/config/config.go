package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// Report formats
const (
	ReportFormatPDF  = "pdf"
	ReportFormatText = "text"
)

const (
	defaultPort              = "8080"
	defaultReportRetention   = 7 * 24 * time.Hour
	defaultEvaluationTimeout = 30 * time.Second
	defaultMaxListen         = 2 * time.Minute
	defaultSampleRate        = 16000
	defaultEncoding          = "LINEAR16"
	defaultLanguage          = "en-US"
)

// Config is the process configuration read from the environment
type Config struct {
	Port      string
	JWTSecret string

	// Speech recognition is enabled when GOOGLE_STT_ENABLED is true
	GoogleSTTEnabled bool
	Audio            repositories.AudioConfig

	CatalogURL   string
	CatalogToken string
	CatalogFile  string

	MongoURI      string
	MongoDatabase string
	ReportDir     string
	ReportFormat  string

	ReportRetention   time.Duration
	ScoringMode       entities.ScoringMode
	EvaluationTimeout time.Duration
	MaxListen         time.Duration
	FollowUp          bool
}

// Load reads a .env file when present and then the environment
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}
	return FromEnv(os.Getenv, logger)
}

// FromEnv builds the configuration from a lookup function
func FromEnv(getenv func(string) string, logger *zap.Logger) (*Config, error) {
	r := reader{getenv: getenv, logger: logger}

	scoring, err := entities.ParseScoringMode(getenv("SCORING_MODE"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SCORING_MODE: %w", err)
	}

	config := &Config{
		Port:             r.str("PORT", defaultPort),
		JWTSecret:        getenv("JWT_SECRET"),
		GoogleSTTEnabled: r.boolean("GOOGLE_STT_ENABLED", false),
		Audio: repositories.AudioConfig{
			SampleRate: r.integer("AUDIO_SAMPLE_RATE", defaultSampleRate),
			Encoding:   r.str("AUDIO_ENCODING", defaultEncoding),
			Language:   r.str("GOOGLE_STT_LANGUAGE", defaultLanguage),
		},
		CatalogURL:        getenv("CATALOG_URL"),
		CatalogToken:      getenv("CATALOG_TOKEN"),
		CatalogFile:       getenv("CATALOG_FILE"),
		MongoURI:          getenv("MONGODB_URI"),
		MongoDatabase:     getenv("MONGODB_DATABASE"),
		ReportDir:         getenv("REPORT_DIR"),
		ReportFormat:      strings.ToLower(r.str("REPORT_FORMAT", ReportFormatPDF)),
		ReportRetention:   r.duration("REPORT_RETENTION_HOURS", time.Hour, defaultReportRetention),
		ScoringMode:       scoring,
		EvaluationTimeout: r.duration("EVALUATION_TIMEOUT_SECONDS", time.Second, defaultEvaluationTimeout),
		MaxListen:         r.duration("MAX_LISTEN_SECONDS", time.Second, defaultMaxListen),
		FollowUp:          r.boolean("FOLLOW_UP_ENABLED", false),
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateConfig rejects settings that cannot be served
func ValidateConfig(config *Config) error {
	switch config.ReportFormat {
	case ReportFormatPDF, ReportFormatText:
	default:
		return fmt.Errorf("unsupported REPORT_FORMAT %q", config.ReportFormat)
	}
	if config.Audio.SampleRate < 8000 || config.Audio.SampleRate > 48000 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be between 8000 and 48000, got %d", config.Audio.SampleRate)
	}
	return nil
}

type reader struct {
	getenv func(string) string
	logger *zap.Logger
}

func (r reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	r.logger.Debug("Using default "+key, zap.String("value", fallback))
	return fallback
}

func (r reader) integer(key string, fallback int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.logger.Warn("Invalid integer, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", fallback))
		return fallback
	}
	return n
}

func (r reader) boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.logger.Warn("Invalid boolean, using default", zap.String("key", key), zap.String("value", v), zap.Bool("default", fallback))
		return fallback
	}
	return b
}

// duration reads a positive count of unit
func (r reader) duration(key string, unit, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.logger.Warn("Invalid duration, using default", zap.String("key", key), zap.String("value", v), zap.Duration("default", fallback))
		return fallback
	}
	return time.Duration(n) * unit
}
