package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobTypeReport is the job type of queued report generation
const JobTypeReport = "report"

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Done reports whether the job reached a terminal state
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ReportJobPayload describes the report a job should produce. Range is a range
// code for atfrom and Preset an optional atto expression, both resolved when
// the job runs rather than when it is queued.
type ReportJobPayload struct {
	Kind     ReportKind `bson:"kind" json:"kind"`
	Range    string     `bson:"range,omitempty" json:"range,omitempty"`
	Preset   string     `bson:"preset,omitempty" json:"preset,omitempty"`
	Instance string     `bson:"instance,omitempty" json:"instance,omitempty"`
	Player   string     `bson:"player,omitempty" json:"player,omitempty"`
	Timezone string     `bson:"tz,omitempty" json:"tz,omitempty"`
	Export   bool       `bson:"export" json:"export"`
}

// Job is a queued report request
type Job struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Type        string              `bson:"type" json:"type"`
	Status      JobStatus           `bson:"status" json:"status"`
	Payload     ReportJobPayload    `bson:"payload" json:"payload"`
	ReportID    *primitive.ObjectID `bson:"report_id,omitempty" json:"report_id,omitempty"`
	Error       string              `bson:"error,omitempty" json:"error,omitempty"`
	RequestedBy string              `bson:"requested_by,omitempty" json:"requested_by,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
