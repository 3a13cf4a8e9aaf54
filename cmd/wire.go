package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/adapters"
	"github.com/satriahrh/arunika/interview/adapters/catalog"
	"github.com/satriahrh/arunika/interview/adapters/evaluator"
	"github.com/satriahrh/arunika/interview/adapters/llm"
	"github.com/satriahrh/arunika/interview/adapters/mongo"
	"github.com/satriahrh/arunika/interview/adapters/stt"
	"github.com/satriahrh/arunika/interview/adapters/tts"
	"github.com/satriahrh/arunika/interview/domain/repositories"
	"github.com/satriahrh/arunika/interview/internal/config"
	"github.com/satriahrh/arunika/interview/internal/report"
	"github.com/satriahrh/arunika/interview/internal/saga"
	"github.com/satriahrh/arunika/interview/internal/saga/reporting"
	"github.com/satriahrh/arunika/interview/usecase"
)

// components are the services shared by every command
type components struct {
	reports    repositories.ReportRepository
	topics     *usecase.TopicService
	reporting  *usecase.ReportService
	interviews *usecase.InterviewService

	closers []func(context.Context) error
}

func (c *components) Close(ctx context.Context, logger *zap.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			logger.Warn("Failed to close component", zap.Error(err))
		}
	}
}

type buildOptions struct {
	// speech enables text-to-speech and recognition backends
	speech bool
	// mockSpeech replaces the speech backends with local mocks
	mockSpeech bool
	// topicFile adds a local catalog ahead of the configured ones
	topicFile string
	// memoryReports keeps reports in memory regardless of configuration
	memoryReports bool
}

func buildComponents(ctx context.Context, cfg *config.Config, opts buildOptions, logger *zap.Logger) (*components, error) {
	c := &components{}
	fs := afero.NewOsFs()

	reports, err := buildReportRepository(ctx, cfg, fs, opts, c, logger)
	if err != nil {
		c.Close(ctx, logger)
		return nil, err
	}
	c.reports = reports

	var catalogs []repositories.TopicCatalog
	if opts.topicFile != "" {
		catalogs = append(catalogs, catalog.NewFileCatalog(fs, opts.topicFile, logger))
	}
	if cfg.CatalogURL != "" {
		remote, err := catalog.NewHTTPCatalog(catalog.HTTPConfig{URL: cfg.CatalogURL, Token: cfg.CatalogToken}, logger)
		if err != nil {
			logger.Warn("Ignoring remote catalog", zap.Error(err))
		} else {
			catalogs = append(catalogs, remote)
		}
	}
	if cfg.CatalogFile != "" {
		catalogs = append(catalogs, catalog.NewFileCatalog(fs, cfg.CatalogFile, logger))
	}
	catalogs = append(catalogs, catalog.BuiltinCatalog{})
	c.topics = usecase.NewTopicService(logger, catalogs...)

	model := buildLLM(ctx, logger)
	eval := evaluator.New(model, evaluator.Config{Timeout: cfg.EvaluationTimeout}, logger)

	var exporter report.Exporter = report.PDFExporter{Author: "Arunika Interview"}
	if cfg.ReportFormat == config.ReportFormatText {
		exporter = report.TextExporter{}
	}
	c.reporting = usecase.NewReportService(saga.NewManager(logger), reporting.Config{
		Evaluator: eval,
		Exporter:  exporter,
		Reports:   reports,
	}, logger)

	interviewConfig := usecase.InterviewConfig{
		Evaluator:         eval,
		Audio:             cfg.Audio,
		ScoringMode:       cfg.ScoringMode,
		EvaluationTimeout: cfg.EvaluationTimeout,
		MaxListen:         cfg.MaxListen,
		FollowUp:          cfg.FollowUp,
	}
	switch {
	case opts.mockSpeech:
		logger.Info("Using mock speech backends")
		interviewConfig.TextToSpeech = tts.NewMockTextToSpeech(logger)
		interviewConfig.SpeechToText = stt.NewMockSpeechToText(logger)
	case opts.speech:
		attachSpeech(ctx, cfg, &interviewConfig, c, logger)
	}

	c.interviews, err = usecase.NewInterviewService(interviewConfig, c.topics, c.reporting, logger)
	if err != nil {
		c.Close(ctx, logger)
		return nil, fmt.Errorf("failed to create interview service: %w", err)
	}
	return c, nil
}

// buildReportRepository prefers MongoDB, then a report directory, then memory
func buildReportRepository(ctx context.Context, cfg *config.Config, fs afero.Fs, opts buildOptions, c *components, logger *zap.Logger) (repositories.ReportRepository, error) {
	switch {
	case opts.memoryReports:
		return adapters.NewMemoryReportRepository(logger), nil

	case cfg.MongoURI != "":
		client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return mongo.NewReportRepository(client.Database, logger), nil

	case cfg.ReportDir != "":
		repo, err := adapters.NewFileReportRepository(fs, cfg.ReportDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open report directory: %w", err)
		}
		return repo, nil

	default:
		logger.Warn("No report storage configured, reports are kept in memory")
		return adapters.NewMemoryReportRepository(logger), nil
	}
}

// buildLLM uses Gemini when an API key is configured and a canned model
// otherwise
func buildLLM(ctx context.Context, logger *zap.Logger) repositories.LargeLanguageModel {
	geminiConfig := llm.NewGeminiConfigFromEnv()
	if geminiConfig.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, using mock LLM")
		return llm.NewMockLLM(logger, nil)
	}
	model, err := llm.NewGeminiLLM(ctx, geminiConfig, logger)
	if err != nil {
		logger.Warn("Failed to create Gemini LLM, using mock LLM", zap.Error(err))
		return llm.NewMockLLM(logger, nil)
	}
	return model
}

// attachSpeech wires ElevenLabs and Google recognition when configured. A
// missing backend leaves the interview in text mode for that direction.
func attachSpeech(ctx context.Context, cfg *config.Config, ic *usecase.InterviewConfig, c *components, logger *zap.Logger) {
	ttsConfig := tts.NewElevenLabsConfigFromEnv()
	if ttsConfig.APIKey != "" {
		synth, err := tts.NewElevenLabsTTS(ttsConfig, logger)
		if err != nil {
			logger.Warn("Failed to create ElevenLabs TTS, questions are shown as text", zap.Error(err))
		} else {
			ic.TextToSpeech = synth
		}
	} else {
		logger.Info("ELEVEN_LABS_API_KEY not set, questions are shown as text")
	}

	if cfg.GoogleSTTEnabled {
		recognizer, err := stt.NewGoogleSpeechToText(ctx, stt.GoogleConfig{Language: cfg.Audio.Language}, logger)
		if err != nil {
			logger.Warn("Failed to create Google speech recognition, answers are typed", zap.Error(err))
		} else {
			ic.SpeechToText = recognizer
			c.closers = append(c.closers, func(context.Context) error { return recognizer.Close() })
		}
	}
}
