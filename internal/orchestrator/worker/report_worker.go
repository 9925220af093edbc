package worker

import (
	"context"
	"errors"
	"fmt"
	"gamewatch/internal/controller"
	"gamewatch/internal/criteria"
	"gamewatch/internal/model"
	"gamewatch/internal/orchestrator"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const REPORT_NAME = "Report Worker"

type reportWorker struct {
	reports   controller.ReportController
	defaultTZ string
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	jobID  *primitive.ObjectID
}

// NewReportWorker runs report jobs. Relative ranges in a job payload are
// resolved when the job starts.
func NewReportWorker(reports controller.ReportController, defaultTZ string) orchestrator.Worker {
	return &reportWorker{
		reports:   reports,
		defaultTZ: defaultTZ,
		now:       time.Now,
	}
}

func (r *reportWorker) ActiveJobID() *primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.jobID == nil {
		return nil
	}
	id := *r.jobID
	return &id
}

func (r *reportWorker) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return orchestrator.ErrNotActive
	}
	r.cancel()
	return nil
}

func (r *reportWorker) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *reportWorker) Name() string {
	return REPORT_NAME
}

func (r *reportWorker) Type() string {
	return model.JobTypeReport
}

func (r *reportWorker) StartWorker(ctx context.Context, job *model.Job) (orchestrator.Result, error) {
	payload := job.Payload
	if !payload.Kind.Valid() {
		return orchestrator.Result{}, fmt.Errorf("unknown report kind %q", payload.Kind)
	}

	c, err := criteria.Resolve(criteria.Query{
		AtFrom:   payload.Range,
		AtTo:     payload.Preset,
		TZ:       payload.Timezone,
		Instance: payload.Instance,
		Player:   payload.Player,
	}, r.now(), r.defaultTZ)
	if err != nil {
		return orchestrator.Result{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return orchestrator.Result{}, fmt.Errorf("worker busy with job %s", r.jobID.Hex())
	}
	r.cancel = cancel
	r.jobID = &job.ID
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.jobID = nil
		r.mu.Unlock()
	}()

	log.Info().
		Str("jobId", job.ID.Hex()).
		Str("kind", string(payload.Kind)).
		Int64("atfrom", c.Window.AtFrom).
		Int64("atto", c.Window.AtTo).
		Msg("Generating report")

	report, err := r.reports.Generate(ctx, controller.ReportRequest{
		Kind:     payload.Kind,
		Criteria: c,
		JobID:    &job.ID,
		Export:   payload.Export,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return orchestrator.Result{Cancelled: true}, nil
		}
		return orchestrator.Result{}, err
	}

	return orchestrator.Result{ReportID: report.ID}, nil
}
