package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const reportsCollection = "reports"

// ReportRepository implements repositories.ReportRepository using MongoDB
type ReportRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new MongoDB report repository
func NewReportRepository(db *mongo.Database, logger *zap.Logger) *ReportRepository {
	collection := db.Collection(reportsCollection)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		})
		if err != nil {
			logger.Error("Failed to create report indexes", zap.Error(err))
		} else {
			logger.Info("Report indexes created successfully")
		}
	}()

	return &ReportRepository{
		collection: collection,
		logger:     logger,
	}
}

// Create implements repositories.ReportRepository
func (r *ReportRepository) Create(ctx context.Context, report *entities.Report) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if report.ID == "" {
		return errors.New("report ID cannot be empty")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, report); err != nil {
		r.logger.Error("Failed to create report", zap.Error(err), zap.String("report_id", report.ID))
		return fmt.Errorf("failed to create report: %w", err)
	}

	r.logger.Info("Report created",
		zap.String("report_id", report.ID),
		zap.String("session_id", report.SessionID))
	return nil
}

// GetByID implements repositories.ReportRepository
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	var report entities.Report
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return &report, nil
}

// Delete implements repositories.ReportRepository
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteOlderThan implements repositories.ReportRepository
func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reports: %w", err)
	}
	return int(result.DeletedCount), nil
}

// ListByUser returns the most recent reports of a user, newest first
func (r *ReportRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Report, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"content": 0})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var reports []*entities.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, nil
}
