package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
	"github.com/satriahrh/arunika/interview/internal/countdown"
	"github.com/satriahrh/arunika/interview/internal/mediagate"
	"github.com/satriahrh/arunika/interview/internal/speechio"
	"github.com/satriahrh/arunika/interview/usecase/interview"
)

// InterviewConfig holds the deployment-wide interview settings
type InterviewConfig struct {
	TextToSpeech      repositories.TextToSpeech
	SpeechToText      repositories.SpeechToText
	Evaluator         repositories.AnswerEvaluator
	Audio             repositories.AudioConfig
	ScoringMode       entities.ScoringMode
	EvaluationTimeout time.Duration
	MaxListen         time.Duration
	FollowUp          bool
	Clock             clock.Clock
}

// InterviewService assembles live interviews from the catalog and the
// configured speech and scoring backends
type InterviewService struct {
	config  InterviewConfig
	topics  *TopicService
	reports *ReportService
	logger  *zap.Logger
}

// NewInterviewService creates a new interview service
func NewInterviewService(config InterviewConfig, topics *TopicService, reports *ReportService, logger *zap.Logger) (*InterviewService, error) {
	if config.Evaluator == nil {
		return nil, errors.New("answer evaluator is required")
	}
	if topics == nil || reports == nil {
		return nil, errors.New("topic and report services are required")
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.ScoringMode == "" {
		config.ScoringMode = entities.ScoringModePassCount
	}
	return &InterviewService{
		config:  config,
		topics:  topics,
		reports: reports,
		logger:  logger,
	}, nil
}

// SessionRequest describes one interview to prepare
type SessionRequest struct {
	TopicID    string
	Candidate  entities.Candidate
	UserID     string
	Devices    repositories.MediaDevices
	Sink       repositories.AudioSink
	Preview    repositories.PreviewSurface
	Camera     bool
	Microphone bool
	// TextOnly disables speech in both directions
	TextOnly bool
	Observer interview.Observer
}

// LiveInterview is a prepared interview and the collaborators it owns
type LiveInterview struct {
	Controller *interview.Controller
	Topic      entities.Topic
	Candidate  entities.Candidate
	UserID     string

	gate   *mediagate.Gate
	speech *speechio.Adapter
}

// Gate returns the media gate of the interview
func (l *LiveInterview) Gate() *mediagate.Gate {
	return l.gate
}

// Prepare validates the request and builds an idle controller. The caller
// runs the controller and starts it.
func (s *InterviewService) Prepare(ctx context.Context, req SessionRequest) (*LiveInterview, error) {
	if err := req.Candidate.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candidate: %w", err)
	}
	if req.Devices == nil {
		return nil, errors.New("media devices are required")
	}

	topic, err := s.topics.FindTopic(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("topic", topic.Topic))

	gate := mediagate.New(req.Devices, logger)
	gate.ConfirmPermissions(req.Camera, req.Microphone)
	if req.Preview != nil {
		if err := gate.BindPreview(req.Preview); err != nil {
			return nil, fmt.Errorf("failed to bind preview: %w", err)
		}
	}

	speechConfig := speechio.Config{
		Audio:     s.config.Audio,
		MaxListen: s.config.MaxListen,
		Clock:     s.config.Clock,
	}
	if !req.TextOnly {
		speechConfig.TextToSpeech = s.config.TextToSpeech
		speechConfig.SpeechToText = s.config.SpeechToText
		speechConfig.Sink = req.Sink
	}
	speech := speechio.New(speechConfig, logger)

	controller, err := interview.New(interview.Config{
		Topic:             topic.Topic,
		Questions:         topic.Questions,
		ScoringMode:       s.config.ScoringMode,
		EvaluationTimeout: s.config.EvaluationTimeout,
		FollowUp:          s.config.FollowUp,
		Clock:             s.config.Clock,
	}, interview.Dependencies{
		Media:     gate,
		Speech:    speech,
		Countdown: countdown.New(s.config.Clock, logger),
		Evaluator: s.config.Evaluator,
	}, req.Observer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	logger.Info("Interview prepared",
		zap.String("sessionID", controller.SessionID()),
		zap.Bool("speech", speech.CanSpeak()),
		zap.Bool("recognition", speech.CanListen()))

	return &LiveInterview{
		Controller: controller,
		Topic:      topic,
		Candidate:  req.Candidate,
		UserID:     req.UserID,
		gate:       gate,
		speech:     speech,
	}, nil
}

// Report generates the report of a terminated interview
func (s *InterviewService) Report(ctx context.Context, live *LiveInterview) (*entities.Report, error) {
	return s.reports.Generate(ctx, live.Controller.Snapshot(), live.Candidate, live.UserID)
}
