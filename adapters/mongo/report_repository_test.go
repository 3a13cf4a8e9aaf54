package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
)

// TestReportRepository_Integration requires a running MongoDB instance and is
// skipped if MONGODB_URI is not set
func TestReportRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	client, err := NewClient(ctx, Config{URI: mongoURI, Database: "interview_test"}, logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)
	defer client.Database.Drop(ctx)

	repo := NewReportRepository(client.Database, logger)

	t.Run("CreateAndGetReport", func(t *testing.T) {
		report := &entities.Report{
			ID:          uuid.NewString(),
			SessionID:   uuid.NewString(),
			UserID:      "user-1",
			Topic:       "Arrays",
			Status:      entities.SessionStatusCompleted,
			Score:       2,
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.3"),
		}
		if err := repo.Create(ctx, report); err != nil {
			t.Fatalf("Failed to create report: %v", err)
		}

		got, err := repo.GetByID(ctx, report.ID)
		if err != nil {
			t.Fatalf("Failed to get report: %v", err)
		}
		if got.Topic != "Arrays" || got.Score != 2 {
			t.Errorf("Unexpected report: %+v", got)
		}
		if string(got.Content) != "%PDF-1.3" {
			t.Errorf("Expected content to round trip, got %q", got.Content)
		}

		reports, err := repo.ListByUser(ctx, "user-1", 10)
		if err != nil || len(reports) != 1 {
			t.Errorf("Expected one report for user, got %d (%v)", len(reports), err)
		}
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		old := &entities.Report{ID: uuid.NewString(), CreatedAt: time.Now().Add(-48 * time.Hour)}
		if err := repo.Create(ctx, old); err != nil {
			t.Fatalf("Failed to create report: %v", err)
		}

		n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("DeleteOlderThan failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 deleted report, got %d", n)
		}
		if _, err := repo.GetByID(ctx, old.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}
