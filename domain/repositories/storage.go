package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/arunika/interview/domain/entities"
)

// ReportRepository defines data access methods for generated reports
type ReportRepository interface {
	Create(ctx context.Context, report *entities.Report) error
	GetByID(ctx context.Context, id string) (*entities.Report, error)
	Delete(ctx context.Context, id string) error
	// DeleteOlderThan removes reports created before cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
