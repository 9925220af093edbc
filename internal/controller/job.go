package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gamewatch/internal/config"
	"gamewatch/internal/criteria"
	"gamewatch/internal/database"
	"gamewatch/internal/model"
	"gamewatch/internal/orchestrator"
	"gamewatch/internal/rabbitmq"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidJob is returned for job requests that can never run
var ErrInvalidJob = errors.New("invalid job")

// JobController handles job operations
type JobController interface {
	// CreateJob stores a report job and enqueues it for processing
	CreateJob(ctx context.Context, jobType string, payload model.ReportJobPayload, requestedBy string) (*model.Job, error)

	// ProcessJobs declares the queue topology and starts consuming jobs
	ProcessJobs(ctx context.Context) error

	// GetAvailableJobTypes maps job types to worker names
	GetAvailableJobTypes() map[string]string

	// CancelJob stops the running job of jobType
	CancelJob(jobType string) error

	// StopProcessing stops the consumer and waits for the running job
	StopProcessing()

	ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

type jobController struct {
	db              database.JobDatabase
	rabbitClient    rabbitmq.Client
	rabbitConfig    config.RabbitMQConfig
	jobsConfig      config.JobsConfig
	defaultTZ       string
	processRegistry orchestrator.WorkerRegistry
	consumerTag     string
	shutdown        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewJobController creates a new job controller
func NewJobController(db database.JobDatabase, rabbitClient rabbitmq.Client,
	rabbitConfig config.RabbitMQConfig, jobsConfig config.JobsConfig, defaultTZ string,
	registry orchestrator.WorkerRegistry) JobController {
	return &jobController{
		db:              db,
		rabbitClient:    rabbitClient,
		rabbitConfig:    rabbitConfig,
		jobsConfig:      jobsConfig,
		defaultTZ:       defaultTZ,
		processRegistry: registry,
		shutdown:        make(chan struct{}),
	}
}

func (c *jobController) CancelJob(jobType string) error {
	worker, ok := c.processRegistry.Get(jobType)
	if !ok {
		return fmt.Errorf("%w: %s", orchestrator.ErrUnknownJobType, jobType)
	}

	jobID := worker.ActiveJobID()
	if err := worker.Cancel(); err != nil {
		return err
	}

	if jobID != nil {
		log.Info().Str("jobId", jobID.Hex()).Str("jobType", jobType).Msg("Cancelled job")
	}
	return nil
}

func (c *jobController) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return c.db.GetJobByID(ctx, id)
}

func (c *jobController) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	return c.db.ListJobs(ctx, status, limit)
}

// validate rejects payloads that would fail every time they run
func (c *jobController) validate(payload model.ReportJobPayload) error {
	if !payload.Kind.Valid() {
		return fmt.Errorf("%w: unknown report kind %q", ErrInvalidJob, payload.Kind)
	}

	_, err := criteria.Resolve(criteria.Query{
		AtFrom:   payload.Range,
		AtTo:     payload.Preset,
		TZ:       payload.Timezone,
		Instance: payload.Instance,
		Player:   payload.Player,
	}, time.Now(), c.defaultTZ)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	return nil
}

func (c *jobController) CreateJob(ctx context.Context, jobType string, payload model.ReportJobPayload, requestedBy string) (*model.Job, error) {
	if _, ok := c.processRegistry.Get(jobType); !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidJob, orchestrator.ErrUnknownJobType, jobType)
	}
	if err := c.validate(payload); err != nil {
		return nil, err
	}

	job := &model.Job{
		ID:          primitive.NewObjectID(),
		Type:        jobType,
		Status:      model.StatusQueued,
		Payload:     payload,
		RequestedBy: requestedBy,
	}

	if err := c.db.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := c.enqueueJob(ctx, job); err != nil {
		if updateErr := c.db.UpdateJobStatus(ctx, job.ID, model.StatusFailed, err.Error()); updateErr != nil {
			log.Error().Err(updateErr).Str("jobId", job.ID.Hex()).Msg("Failed to mark unqueued job as failed")
		}
		job.Status = model.StatusFailed
		return job, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Info().
		Str("jobId", job.ID.Hex()).
		Str("jobType", jobType).
		Str("kind", string(payload.Kind)).
		Msg("Job created and enqueued")

	return job, nil
}

// enqueueJob publishes the job id; the full job lives in MongoDB
func (c *jobController) enqueueJob(ctx context.Context, job *model.Job) error {
	headers := amqp.Table{
		"job_id":   job.ID.Hex(),
		"job_type": job.Type,
	}

	messageBytes, err := json.Marshal(map[string]string{"job_id": job.ID.Hex()})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.rabbitClient.Publish(ctx, c.rabbitConfig.ExchangeName, c.rabbitConfig.QueueName, messageBytes, headers); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (c *jobController) ProcessJobs(ctx context.Context) error {
	if len(c.processRegistry.AvailableProcessors()) == 0 {
		return fmt.Errorf("no job processors registered")
	}

	if err := rabbitmq.DeclareJobTopology(c.rabbitClient, c.rabbitConfig); err != nil {
		return err
	}

	c.consumerTag = fmt.Sprintf("jobs-consumer-%s", primitive.NewObjectID().Hex())
	c.startConsumer(ctx, c.rabbitConfig.QueueName, c.consumerTag)

	log.Info().Int("processors", len(c.processRegistry.AvailableProcessors())).Msg("Job processing started")
	return nil
}

func (c *jobController) StopProcessing() {
	c.stopOnce.Do(func() {
		close(c.shutdown)
	})
	c.wg.Wait()
	log.Info().Msg("Job processing stopped")
}

// pause waits out the retry delay; false means the consumer should stop
func (c *jobController) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.shutdown:
		return false
	case <-time.After(c.jobsConfig.RetryDelay()):
		return true
	}
}

func (c *jobController) startConsumer(ctx context.Context, queueName, consumerTag string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		log.Info().
			Str("queue", queueName).
			Str("consumerTag", consumerTag).
			Msg("Starting job consumer")

		for {
			deliveries, err := c.rabbitClient.Consume(queueName, consumerTag)
			if err != nil {
				log.Error().
					Err(err).
					Str("queue", queueName).
					Str("consumerTag", consumerTag).
					Msg("Failed to consume from queue")
				if !c.pause(ctx) {
					return
				}
				continue
			}

			if !c.drain(ctx, deliveries) {
				log.Info().Str("consumerTag", consumerTag).Msg("Stopping consumer")
				return
			}

			log.Warn().
				Str("queue", queueName).
				Str("consumerTag", consumerTag).
				Msg("Consumer channel closed, reconnecting...")
			if !c.pause(ctx) {
				return
			}
		}
	}()
}

// drain handles deliveries until the channel closes (true) or the consumer
// is told to stop (false)
func (c *jobController) drain(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.shutdown:
			return false
		case delivery, ok := <-deliveries:
			if !ok {
				return true
			}
			c.processDelivery(ctx, delivery)
		}
	}
}

// acknowledger is the part of amqp.Delivery processDelivery settles with
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *jobController) processDelivery(ctx context.Context, delivery amqp.Delivery) {
	c.handle(ctx, delivery.Headers, delivery)
}

func (c *jobController) handle(ctx context.Context, headers amqp.Table, ack acknowledger) {
	jobIDStr, ok := headers["job_id"].(string)
	if !ok {
		log.Error().Msg("Message missing job_id header, rejecting")
		ack.Nack(false, false)
		return
	}

	jobType, ok := headers["job_type"].(string)
	if !ok {
		log.Error().Str("jobId", jobIDStr).Msg("Message missing job_type header, rejecting")
		ack.Nack(false, false)
		return
	}

	logger := log.With().
		Str("jobId", jobIDStr).
		Str("jobType", jobType).
		Logger()

	logger.Info().Msg("Processing job message")

	job, err := c.db.GetJobByID(ctx, jobIDStr)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve job from database")
		ack.Nack(false, !errors.Is(err, database.ErrNotFound))
		return
	}

	if job.Status.Done() {
		logger.Warn().Str("status", string(job.Status)).Msg("Job already finished, dropping redelivery")
		ack.Ack(false)
		return
	}

	processor, exists := c.processRegistry.Get(jobType)
	if !exists {
		logger.Error().Msg("No processor registered for job type")
		c.finish(ctx, logger, job, model.StatusFailed, "no processor for job type "+jobType)
		ack.Ack(false)
		return
	}

	if err := c.db.UpdateJobStatus(ctx, job.ID, model.StatusProcessing, ""); err != nil {
		logger.Error().Err(err).Msg("Failed to update job status to processing")
		ack.Nack(false, true)
		return
	}

	start := time.Now()
	result, err := processor.StartWorker(ctx, job)
	jobDuration.WithLabelValues(jobType).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Job processing failed")
		c.finish(ctx, logger, job, model.StatusFailed, err.Error())
	case result.Cancelled:
		logger.Info().Msg("Job cancelled")
		c.finish(ctx, logger, job, model.StatusCancelled, "")
	default:
		if err := c.db.CompleteJob(ctx, job.ID, result.ReportID); err != nil {
			logger.Error().Err(err).Msg("Failed to update job status to completed")
		}
		jobsProcessed.WithLabelValues(jobType, string(model.StatusCompleted)).Inc()
		logger.Info().
			Str("reportId", result.ReportID.Hex()).
			Dur("duration", time.Since(start)).
			Msg("Job processed successfully")
	}

	ack.Ack(false)
}

func (c *jobController) finish(ctx context.Context, logger zerolog.Logger, job *model.Job, status model.JobStatus, errMsg string) {
	if err := c.db.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		logger.Error().Err(err).Str("status", string(status)).Msg("Failed to update job status")
	}
	jobsProcessed.WithLabelValues(job.Type, string(status)).Inc()
}

func (c *jobController) GetAvailableJobTypes() map[string]string {
	jobTypeMap := make(map[string]string)

	for _, processType := range c.processRegistry.AvailableProcessors() {
		process, _ := c.processRegistry.Get(processType)
		jobTypeMap[processType] = process.Name()
	}

	return jobTypeMap
}
