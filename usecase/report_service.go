package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
	"github.com/satriahrh/arunika/interview/internal/saga"
	"github.com/satriahrh/arunika/interview/internal/saga/reporting"
)

// runRetention is how long finished report runs stay inspectable
const runRetention = time.Hour

// ReportService turns finished interviews into stored reports
type ReportService struct {
	manager *saga.Manager
	reports repositories.ReportRepository
	logger  *zap.Logger
}

// NewReportService registers the report saga on manager
func NewReportService(manager *saga.Manager, config reporting.Config, logger *zap.Logger) *ReportService {
	manager.Register(reporting.NewDefinition(config, logger))
	manager.Subscribe(func(e saga.Event) {
		logger.Debug("Report saga event",
			zap.String("sagaID", string(e.SagaID)),
			zap.String("stepID", string(e.StepID)),
			zap.String("type", e.Type),
			zap.String("error", e.Error))
	})
	return &ReportService{
		manager: manager,
		reports: config.Reports,
		logger:  logger,
	}
}

// Generate compiles, renders and stores the report for a terminated session
func (s *ReportService) Generate(ctx context.Context, session entities.Session, candidate entities.Candidate, userID string) (*entities.Report, error) {
	if !session.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s is still %s", session.ID, session.Status)
	}

	s.logger.Info("Generating report",
		zap.String("sessionID", session.ID),
		zap.String("topic", session.Topic),
		zap.String("status", string(session.Status)))

	instance, err := s.manager.Run(ctx, reporting.DefinitionName, saga.Data{
		reporting.DataKeyRequest: reporting.Request{
			Session:   session,
			Candidate: candidate,
			UserID:    userID,
		},
	})
	if pruned := s.manager.Prune(time.Now().Add(-runRetention)); pruned > 0 {
		s.logger.Debug("Pruned finished report runs", zap.Int("count", pruned))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	rep, ok := saga.Value[*entities.Report](instance.Data, reporting.DataKeyReport)
	if !ok {
		return nil, errors.New("report saga finished without a report")
	}
	return rep, nil
}

// Get returns a stored report
func (s *ReportService) Get(ctx context.Context, id string) (*entities.Report, error) {
	return s.reports.GetByID(ctx, id)
}
