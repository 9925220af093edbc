package controller

import (
	"bytes"
	"context"
	"fmt"
	"gamewatch/internal/aws"
	"gamewatch/internal/criteria"
	"gamewatch/internal/database"
	"gamewatch/internal/model"
	"gamewatch/internal/render"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportRequest asks for one report over resolved criteria
type ReportRequest struct {
	Kind     model.ReportKind
	Criteria criteria.Criteria
	JobID    *primitive.ObjectID
	Export   bool
}

// ReportController builds, stores and exports report snapshots
type ReportController interface {
	// Generate computes a report and stores it. With Export set and a file
	// service configured the rendered text is uploaded as well.
	Generate(ctx context.Context, req ReportRequest) (*model.Report, error)

	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, filter database.ReportFilter) ([]model.ReportSummary, error)
}

type reportController struct {
	activity     ActivityController
	db           database.ReportDatabase
	files        aws.FileService
	compactLimit int
}

// NewReportController creates a report controller. files may be nil when
// exports are disabled.
func NewReportController(activity ActivityController, db database.ReportDatabase, files aws.FileService, compactLimit int) ReportController {
	return &reportController{
		activity:     activity,
		db:           db,
		files:        files,
		compactLimit: compactLimit,
	}
}

func (rc *reportController) Generate(ctx context.Context, req ReportRequest) (*model.Report, error) {
	c := req.Criteria
	report := &model.Report{
		Kind: req.Kind,
		Criteria: model.ReportCriteria{
			AtFrom:   c.Window.AtFrom,
			AtTo:     c.Window.AtTo,
			Timezone: c.TZ,
			Instance: c.Instance,
			Player:   c.Player,
		},
		JobID:     req.JobID,
		CreatedAt: time.Now(),
	}

	var err error
	switch req.Kind {
	case model.ReportInstances:
		report.Instances, err = rc.activity.InstanceActivity(ctx, c)
	case model.ReportPlayers:
		report.Players, err = rc.activity.PlayerActivity(ctx, c)
	case model.ReportChat:
		report.Chat, err = rc.activity.ChatLog(ctx, c)
	default:
		return nil, fmt.Errorf("unknown report kind %q", req.Kind)
	}
	if err != nil {
		reportsGenerated.WithLabelValues(string(req.Kind), "failed").Inc()
		return nil, err
	}

	if err := rc.db.CreateReport(ctx, report); err != nil {
		reportsGenerated.WithLabelValues(string(req.Kind), "failed").Inc()
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	reportsGenerated.WithLabelValues(string(req.Kind), "stored").Inc()

	if req.Export {
		if err := rc.export(ctx, report); err != nil {
			// The report is stored, a failed upload only loses the export link
			log.Error().Err(err).Str("reportId", report.ID.Hex()).Msg("Failed to export report")
		}
	}

	log.Info().
		Str("reportId", report.ID.Hex()).
		Str("kind", string(report.Kind)).
		Int64("atfrom", c.Window.AtFrom).
		Int64("atto", c.Window.AtTo).
		Str("instance", c.Instance).
		Msg("Generated report")

	return report, nil
}

func (rc *reportController) export(ctx context.Context, report *model.Report) error {
	if rc.files == nil {
		log.Warn().Str("reportId", report.ID.Hex()).Msg("Export requested but S3 is not configured")
		return nil
	}

	var buf bytes.Buffer
	if err := render.Report(&buf, report, rc.compactLimit); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	name := fmt.Sprintf("%s/%s.txt", report.Kind, report.ID.Hex())
	url, err := rc.files.UploadFile(ctx, name, "text/plain; charset=utf-8", &buf)
	if err != nil {
		return err
	}

	if err := rc.db.SetReportExportURL(ctx, report.ID, url); err != nil {
		return err
	}
	report.ExportURL = url
	return nil
}

func (rc *reportController) GetReport(ctx context.Context, id string) (*model.Report, error) {
	return rc.db.GetReportByID(ctx, id)
}

func (rc *reportController) ListReports(ctx context.Context, filter database.ReportFilter) ([]model.ReportSummary, error) {
	return rc.db.ListReports(ctx, filter)
}
