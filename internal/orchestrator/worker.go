package orchestrator

import (
	"context"
	"errors"
	"gamewatch/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrUnknownJobType is returned for job types with no registered worker
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrNotActive is returned when cancelling a worker that is idle
	ErrNotActive = errors.New("worker is not active")
)

// Result is what a finished job produced
type Result struct {
	ReportID  primitive.ObjectID
	Cancelled bool
}

type Worker interface {
	// StartWorker runs a job to completion. A job stopped through Cancel
	// returns a Result with Cancelled set and no error.
	StartWorker(ctx context.Context, job *model.Job) (Result, error)

	// Cancel stops the running job
	Cancel() error

	Name() string
	IsActive() bool

	// Type is the job type the worker is registered under
	Type() string

	ActiveJobID() *primitive.ObjectID
}
