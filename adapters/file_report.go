package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// FileReportRepository stores every report as a metadata file next to its
// rendered document
type FileReportRepository struct {
	mu     sync.Mutex
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

var _ repositories.ReportRepository = (*FileReportRepository)(nil)

// NewFileReportRepository creates the report directory if needed
func NewFileReportRepository(fs afero.Fs, dir string, logger *zap.Logger) (*FileReportRepository, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	return &FileReportRepository{fs: fs, dir: dir, logger: logger}, nil
}

func (r *FileReportRepository) metaPath(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *FileReportRepository) contentPath(id string) string {
	return filepath.Join(r.dir, id+".bin")
}

// Create implements repositories.ReportRepository
func (r *FileReportRepository) Create(ctx context.Context, report *entities.Report) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if report.ID == "" || strings.ContainsAny(report.ID, `/\`) {
		return fmt.Errorf("invalid report ID %q", report.ID)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	meta, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if exists, _ := afero.Exists(r.fs, r.metaPath(report.ID)); exists {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	if err := afero.WriteFile(r.fs, r.contentPath(report.ID), report.Content, 0644); err != nil {
		return fmt.Errorf("failed to write report content: %w", err)
	}
	if err := afero.WriteFile(r.fs, r.metaPath(report.ID), meta, 0644); err != nil {
		r.fs.Remove(r.contentPath(report.ID))
		return fmt.Errorf("failed to write report metadata: %w", err)
	}

	r.logger.Info("Report written", zap.String("report_id", report.ID), zap.String("dir", r.dir))
	return nil
}

// GetByID implements repositories.ReportRepository
func (r *FileReportRepository) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(id)
}

func (r *FileReportRepository) read(id string) (*entities.Report, error) {
	meta, err := afero.ReadFile(r.fs, r.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}

	var report entities.Report
	if err := json.Unmarshal(meta, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}

	content, err := afero.ReadFile(r.fs, r.contentPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read report content %s: %w", id, err)
	}
	report.Content = content
	return &report, nil
}

// Delete implements repositories.ReportRepository
func (r *FileReportRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fs.Remove(r.metaPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	r.fs.Remove(r.contentPath(id))
	return nil
}

// DeleteOlderThan implements repositories.ReportRepository
func (r *FileReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list report directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(f.Name(), ".json")
		report, err := r.read(id)
		if err != nil {
			r.logger.Warn("Skipping unreadable report", zap.String("report_id", id), zap.Error(err))
			continue
		}
		if !report.CreatedAt.Before(cutoff) {
			continue
		}
		r.fs.Remove(r.metaPath(id))
		r.fs.Remove(r.contentPath(id))
		removed++
	}
	return removed, nil
}
