package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// RetentionConfig controls how long reports are kept
type RetentionConfig struct {
	Retention time.Duration
	Interval  time.Duration
	Clock     clock.Clock
}

// ReportRetentionService deletes expired reports in the background
type ReportRetentionService struct {
	reports   repositories.ReportRepository
	retention time.Duration
	interval  time.Duration
	clock     clock.Clock
	logger    *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewReportRetentionService creates a new report retention service
func NewReportRetentionService(reports repositories.ReportRepository, config RetentionConfig, logger *zap.Logger) *ReportRetentionService {
	if config.Retention <= 0 {
		config.Retention = 7 * 24 * time.Hour
		logger.Info("Using default report retention", zap.Duration("retention", config.Retention))
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &ReportRetentionService{
		reports:   reports,
		retention: config.Retention,
		interval:  config.Interval,
		clock:     config.Clock,
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *ReportRetentionService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ticker := s.clock.Ticker(s.interval)
	go s.cleanupLoop(ticker)
	s.logger.Info("Report retention service started",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *ReportRetentionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.started.Load() {
			<-s.done
		}
		s.logger.Info("Report retention service stopped")
	})
}

func (s *ReportRetentionService) cleanupLoop(ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce deletes every report older than the retention window
func (s *ReportRetentionService) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cutoff := s.clock.Now().Add(-s.retention)
	removed, err := s.reports.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to delete expired reports", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("Expired reports deleted", zap.Int("count", removed))
	}
	return removed
}
