package database

import (
	"context"
	"errors"
	"fmt"
	"gamewatch/internal/config"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("not found")

type Database interface {
	Health() error
	Close(ctx context.Context) error
	ReportDatabase
	JobDatabase
}

type mongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	reportsCol *mongo.Collection
	jobsCol    *mongo.Collection
}

func New(ctx context.Context, cfg config.MongoDBConfig) (Database, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	db := client.Database(cfg.DB)

	reportsCol := db.Collection("reports")
	reportIndexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "criteria.instance", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "job_id", Value: 1}},
		},
	}

	jobsCol := db.Collection("jobs")
	jobIndexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			// Finished jobs expire after 30 days
			Keys:    bson.D{{Key: "completed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(60 * 60 * 24 * 30),
		},
	}

	if _, err := reportsCol.Indexes().CreateMany(ctx, reportIndexModels); err != nil {
		log.Warn().Err(err).Str("collection", "reports").Msg("Error creating indexes")
	}
	if _, err := jobsCol.Indexes().CreateMany(ctx, jobIndexModels); err != nil {
		log.Warn().Err(err).Str("collection", "jobs").Msg("Error creating indexes")
	}

	log.Info().Str("db", cfg.DB).Msg("MongoDB connected")

	return &mongoDB{
		client:     client,
		db:         db,
		reportsCol: reportsCol,
		jobsCol:    jobsCol,
	}, nil
}

// Health implements Database interface
func (m *mongoDB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := m.client.Ping(ctx, nil); err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return err
	}

	return nil
}

func (m *mongoDB) Close(ctx context.Context) error {
	log.Info().Msg("Disconnecting from MongoDB")
	return m.client.Disconnect(ctx)
}
