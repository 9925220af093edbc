package model

import (
	"gamewatch/internal/activity"
	"gamewatch/internal/chat"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportKind names one of the activity reports
type ReportKind string

const (
	ReportInstances ReportKind = "instances"
	ReportPlayers   ReportKind = "players"
	ReportChat      ReportKind = "chat"
)

// ReportKinds lists every kind a job may request
var ReportKinds = []ReportKind{ReportInstances, ReportPlayers, ReportChat}

// Valid reports whether k is a known kind
func (k ReportKind) Valid() bool {
	for _, kind := range ReportKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ReportCriteria is the resolved window and subject a report was built for
type ReportCriteria struct {
	AtFrom   int64  `bson:"atfrom" json:"atfrom"`
	AtTo     int64  `bson:"atto" json:"atto"`
	Timezone string `bson:"tz" json:"tz"`
	Instance string `bson:"instance,omitempty" json:"instance,omitempty"`
	Player   string `bson:"player,omitempty" json:"player,omitempty"`
}

// Report is a stored snapshot of one activity report. Exactly one of
// Instances, Players or Chat is set, matching Kind.
type Report struct {
	ID        primitive.ObjectID       `bson:"_id,omitempty" json:"id"`
	Kind      ReportKind               `bson:"kind" json:"kind"`
	Criteria  ReportCriteria           `bson:"criteria" json:"criteria"`
	Instances *activity.InstanceReport `bson:"instances,omitempty" json:"instances,omitempty"`
	Players   *activity.PlayerReport   `bson:"players,omitempty" json:"players,omitempty"`
	Chat      []chat.Row               `bson:"chat,omitempty" json:"chat,omitempty"`
	ExportURL string                   `bson:"export_url,omitempty" json:"export_url,omitempty"`
	JobID     *primitive.ObjectID      `bson:"job_id,omitempty" json:"job_id,omitempty"`
	CreatedAt time.Time                `bson:"created_at" json:"created_at"`
}

// ReportSummary is the listing form of a report
type ReportSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Kind      ReportKind         `bson:"kind" json:"kind"`
	Criteria  ReportCriteria     `bson:"criteria" json:"criteria"`
	ExportURL string             `bson:"export_url,omitempty" json:"export_url,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
