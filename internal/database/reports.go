package database

import (
	"context"
	"errors"
	"fmt"
	"gamewatch/internal/model"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportFilter narrows ListReports. Zero values match everything.
type ReportFilter struct {
	Kind     model.ReportKind
	Instance string
	Limit    int
	Offset   int
}

// ReportDatabase stores generated report snapshots
type ReportDatabase interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReportByID(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.ReportSummary, error)
	SetReportExportURL(ctx context.Context, id primitive.ObjectID, url string) error
}

func (m *mongoDB) CreateReport(ctx context.Context, report *model.Report) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	if _, err := m.reportsCol.InsertOne(ctx, report); err != nil {
		log.Error().Err(err).Str("reportId", report.ID.Hex()).Msg("Failed to create report")
		return fmt.Errorf("failed to insert report: %w", err)
	}

	log.Debug().Str("reportId", report.ID.Hex()).Str("kind", string(report.Kind)).Msg("Stored report")
	return nil
}

func (m *mongoDB) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid report id %q", ErrNotFound, id)
	}

	var report model.Report
	if err := m.reportsCol.FindOne(ctx, bson.M{"_id": objectID}).Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

func (m *mongoDB) ListReports(ctx context.Context, filter ReportFilter) ([]model.ReportSummary, error) {
	query := bson.M{}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Instance != "" {
		query["criteria.instance"] = filter.Instance
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(max(filter.Offset, 0))).
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"kind": 1, "criteria": 1, "export_url": 1, "created_at": 1})

	cursor, err := m.reportsCol.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []model.ReportSummary{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	return reports, nil
}

func (m *mongoDB) SetReportExportURL(ctx context.Context, id primitive.ObjectID, url string) error {
	result, err := m.reportsCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"export_url": url}})
	if err != nil {
		return fmt.Errorf("failed to update report export: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("report %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
