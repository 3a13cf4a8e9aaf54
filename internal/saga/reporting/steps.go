package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
	"github.com/satriahrh/arunika/interview/internal/report"
	"github.com/satriahrh/arunika/interview/internal/saga"
)

// DefinitionName is the registered name of the report pipeline
const DefinitionName = "report_generation"

// Data keys for the report saga
const (
	DataKeyRequest          = "request"
	DataKeyReferenceAnswers = "reference_answers"
	DataKeyDocument         = "document"
	DataKeyContent          = "content"
	DataKeyReport           = "report"
)

// Request is the input of the report saga
type Request struct {
	Session   entities.Session
	Candidate entities.Candidate
	UserID    string
}

// Config holds the collaborators of the report saga
type Config struct {
	Evaluator   repositories.AnswerEvaluator
	Exporter    report.Exporter
	Reports     repositories.ReportRepository
	Concurrency int
	Timeout     time.Duration
}

// NewDefinition creates the report generation saga
func NewDefinition(config Config, logger *zap.Logger) saga.Definition {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return saga.NewDefinition(DefinitionName, config.Timeout,
		&ReferenceAnswersStep{evaluator: config.Evaluator, concurrency: config.Concurrency, logger: logger},
		&CompileStep{logger: logger},
		&RenderStep{exporter: config.Exporter, logger: logger},
		&StoreStep{reports: config.Reports, contentType: config.Exporter.ContentType(), logger: logger},
		&VerifyStep{reports: config.Reports, logger: logger},
	)
}

func request(data saga.Data) (Request, error) {
	req, ok := saga.Value[Request](data, DataKeyRequest)
	if !ok {
		return Request{}, errors.New("missing or invalid report request")
	}
	return req, nil
}

// ReferenceAnswersStep asks the evaluator for one reference answer per question
type ReferenceAnswersStep struct {
	evaluator   repositories.AnswerEvaluator
	concurrency int
	logger      *zap.Logger
}

func (s *ReferenceAnswersStep) ID() saga.StepID { return "fetch_reference_answers" }

func (s *ReferenceAnswersStep) Execute(ctx context.Context, data saga.Data) (any, error) {
	req, err := request(data)
	if err != nil {
		return nil, err
	}

	questions := req.Session.Questions
	answers := make([]string, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, q := range questions {
		g.Go(func() error {
			answers[i] = s.evaluator.ModelAnswer(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch reference answers: %w", err)
	}

	data[DataKeyReferenceAnswers] = answers
	s.logger.Info("Reference answers fetched", zap.Int("count", len(answers)))
	return answers, nil
}

func (s *ReferenceAnswersStep) Compensate(ctx context.Context, data saga.Data) error {
	delete(data, DataKeyReferenceAnswers)
	return nil
}

// CompileStep builds the report document
type CompileStep struct {
	logger *zap.Logger
}

func (s *CompileStep) ID() saga.StepID { return "compile_document" }

func (s *CompileStep) Execute(ctx context.Context, data saga.Data) (any, error) {
	req, err := request(data)
	if err != nil {
		return nil, err
	}
	answers, _ := saga.Value[[]string](data, DataKeyReferenceAnswers)

	doc := report.Compile(req.Session, req.Candidate, answers)
	data[DataKeyDocument] = doc
	return doc, nil
}

func (s *CompileStep) Compensate(ctx context.Context, data saga.Data) error {
	delete(data, DataKeyDocument)
	return nil
}

// RenderStep exports the document, normally to PDF
type RenderStep struct {
	exporter report.Exporter
	logger   *zap.Logger
}

func (s *RenderStep) ID() saga.StepID { return "render_pdf" }

func (s *RenderStep) Execute(ctx context.Context, data saga.Data) (any, error) {
	doc, ok := saga.Value[report.Document](data, DataKeyDocument)
	if !ok {
		return nil, errors.New("missing compiled document")
	}

	content, err := report.Render(s.exporter, doc)
	if err != nil {
		return nil, err
	}

	data[DataKeyContent] = content
	s.logger.Info("Report rendered",
		zap.String("contentType", s.exporter.ContentType()),
		zap.Int("bytes", len(content)))
	return len(content), nil
}

func (s *RenderStep) Compensate(ctx context.Context, data saga.Data) error {
	delete(data, DataKeyContent)
	return nil
}

// StoreStep persists the rendered report
type StoreStep struct {
	reports     repositories.ReportRepository
	contentType string
	logger      *zap.Logger
}

func (s *StoreStep) ID() saga.StepID { return "store_report" }

func (s *StoreStep) Execute(ctx context.Context, data saga.Data) (any, error) {
	req, err := request(data)
	if err != nil {
		return nil, err
	}
	content, ok := saga.Value[[]byte](data, DataKeyContent)
	if !ok {
		return nil, errors.New("missing rendered content")
	}

	userID := req.UserID
	if userID == "" {
		userID = entities.AnonymousUserID
	}

	rep := &entities.Report{
		ID:            uuid.NewString(),
		SessionID:     req.Session.ID,
		UserID:        userID,
		Candidate:     req.Candidate,
		Topic:         req.Session.Topic,
		Status:        req.Session.Status,
		Score:         req.Session.Score,
		QuestionCount: len(req.Session.Questions),
		ContentType:   s.contentType,
		Content:       content,
		CreatedAt:     time.Now(),
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	data[DataKeyReport] = rep
	s.logger.Info("Report stored", zap.String("reportID", rep.ID), zap.String("userID", userID))
	return rep.ID, nil
}

func (s *StoreStep) Compensate(ctx context.Context, data saga.Data) error {
	rep, ok := saga.Value[*entities.Report](data, DataKeyReport)
	if !ok {
		return nil
	}
	if err := s.reports.Delete(ctx, rep.ID); err != nil {
		return fmt.Errorf("failed to delete report %s: %w", rep.ID, err)
	}
	delete(data, DataKeyReport)
	s.logger.Info("Stored report removed", zap.String("reportID", rep.ID))
	return nil
}

// VerifyStep reads the stored report back and checks the content survived
type VerifyStep struct {
	reports repositories.ReportRepository
	logger  *zap.Logger
}

func (s *VerifyStep) ID() saga.StepID { return "verify_report" }

func (s *VerifyStep) Execute(ctx context.Context, data saga.Data) (any, error) {
	rep, ok := saga.Value[*entities.Report](data, DataKeyReport)
	if !ok {
		return nil, errors.New("missing stored report")
	}

	stored, err := s.reports.GetByID(ctx, rep.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back report: %w", err)
	}
	if !bytes.Equal(stored.Content, rep.Content) {
		return nil, fmt.Errorf("stored report %s content mismatch", rep.ID)
	}
	return rep.ID, nil
}

func (s *VerifyStep) Compensate(ctx context.Context, data saga.Data) error {
	return nil
}
