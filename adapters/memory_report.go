package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// MemoryReportRepository keeps reports in process memory
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*entities.Report
	logger  *zap.Logger
}

var _ repositories.ReportRepository = (*MemoryReportRepository)(nil)

// NewMemoryReportRepository creates an empty in-memory report store
func NewMemoryReportRepository(logger *zap.Logger) *MemoryReportRepository {
	return &MemoryReportRepository{
		reports: make(map[string]*entities.Report),
		logger:  logger,
	}
}

// Create implements repositories.ReportRepository
func (r *MemoryReportRepository) Create(ctx context.Context, report *entities.Report) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if report.ID == "" {
		return errors.New("report ID cannot be empty")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ID]; exists {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	r.reports[report.ID] = copyReport(report)

	r.logger.Debug("Report stored", zap.String("report_id", report.ID))
	return nil
}

// GetByID implements repositories.ReportRepository
func (r *MemoryReportRepository) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return copyReport(report), nil
}

// Delete implements repositories.ReportRepository
func (r *MemoryReportRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reports[id]; !ok {
		return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	delete(r.reports, id)
	return nil
}

// DeleteOlderThan implements repositories.ReportRepository
func (r *MemoryReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, report := range r.reports {
		if report.CreatedAt.Before(cutoff) {
			delete(r.reports, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored reports
func (r *MemoryReportRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}

func copyReport(report *entities.Report) *entities.Report {
	c := *report
	c.Content = append([]byte(nil), report.Content...)
	return &c
}
