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

// JobDatabase defines job-related database operations
type JobDatabase interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error)

	// UpdateJobStatus moves a job to status, recording errMsg when not empty
	UpdateJobStatus(ctx context.Context, id primitive.ObjectID, status model.JobStatus, errMsg string) error

	// CompleteJob marks a job completed and links the report it produced
	CompleteJob(ctx context.Context, id primitive.ObjectID, reportID primitive.ObjectID) error
}

func (m *mongoDB) CreateJob(ctx context.Context, job *model.Job) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	if _, err := m.jobsCol.InsertOne(ctx, job); err != nil {
		log.Error().Err(err).Str("jobId", job.ID.Hex()).Msg("Failed to create job")
		return fmt.Errorf("failed to insert job: %w", err)
	}

	log.Debug().Str("jobId", job.ID.Hex()).Str("type", job.Type).Msg("Created new job")
	return nil
}

func (m *mongoDB) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid job id %q", ErrNotFound, id)
	}

	var job model.Job
	if err := m.jobsCol.FindOne(ctx, bson.M{"_id": objectID}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		log.Error().Err(err).Str("jobId", id).Msg("Failed to get job")
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (m *mongoDB) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.jobsCol.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := []model.Job{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, nil
}

func (m *mongoDB) UpdateJobStatus(ctx context.Context, id primitive.ObjectID, status model.JobStatus, errMsg string) error {
	now := time.Now()
	set := bson.M{
		"status":     status,
		"updated_at": now,
	}
	if status.Done() {
		set["completed_at"] = now
	}
	if errMsg != "" {
		set["error"] = errMsg
	}

	result, err := m.jobsCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		log.Error().Err(err).Str("jobId", id.Hex()).Str("status", string(status)).Msg("Failed to update job status")
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}

	log.Debug().Str("jobId", id.Hex()).Str("status", string(status)).Msg("Updated job status")
	return nil
}

func (m *mongoDB) CompleteJob(ctx context.Context, id primitive.ObjectID, reportID primitive.ObjectID) error {
	now := time.Now()
	result, err := m.jobsCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":       model.StatusCompleted,
		"report_id":    reportID,
		"updated_at":   now,
		"completed_at": now,
	}})
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
