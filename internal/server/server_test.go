package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gamewatch/internal/activity"
	"gamewatch/internal/chat"
	"gamewatch/internal/config"
	"gamewatch/internal/controller"
	"gamewatch/internal/criteria"
	"gamewatch/internal/database"
	"gamewatch/internal/model"
	"gamewatch/internal/orchestrator"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeServer struct {
	checks map[string]error
}

func (f *fakeServer) Checks(ctx context.Context) map[string]error { return f.checks }
func (f *fakeServer) Online() string { return "Online" }

type fakeActivity struct {
	err  error
	seen []criteria.Criteria
}

func (f *fakeActivity) InstanceActivity(ctx context.Context, c criteria.Criteria) (*activity.InstanceReport, error) {
	f.seen = append(f.seen, c)
	if f.err != nil {
		return nil, f.err
	}
	return &activity.InstanceReport{
		Meta: activity.Meta{AtFrom: c.Window.AtFrom, AtTo: c.Window.AtTo},
		Records: []activity.InstanceActivity{
			{Instance: "alpha", Sessions: 1, Uptime: activity.HourMillis, Range: activity.DayMillis, Available: 1.0 / 24},
		},
	}, nil
}

func (f *fakeActivity) PlayerActivity(ctx context.Context, c criteria.Criteria) (*activity.PlayerReport, error) {
	f.seen = append(f.seen, c)
	if f.err != nil {
		return nil, f.err
	}
	return &activity.PlayerReport{
		Meta: activity.Meta{AtFrom: c.Window.AtFrom, AtTo: c.Window.AtTo},
		Records: []activity.InstancePlayers{{
			Instance: "alpha",
			Players: []activity.PlayerActivity{
				{Player: "bob", Sessions: 2, Uptime: 3 * activity.HourMillis},
				{Player: "ann", Sessions: 1, Uptime: 2 * activity.HourMillis},
				{Player: "cid", Sessions: 1, Uptime: activity.HourMillis},
			},
		}},
	}, nil
}

func (f *fakeActivity) ChatLog(ctx context.Context, c criteria.Criteria) ([]chat.Row, error) {
	f.seen = append(f.seen, c)
	if f.err != nil {
		return nil, f.err
	}
	return []chat.Row{
		{Kind: chat.RowHeader, Hour: "2024-03-10 11:00"},
		{Kind: chat.RowChat, Time: "11:05:00", Player: "bob", Text: "gg"},
	}, nil
}

type fakeReports struct {
	report *model.Report
	filter database.ReportFilter
}

func (f *fakeReports) Generate(ctx context.Context, req controller.ReportRequest) (*model.Report, error) {
	return nil, errors.New("not used")
}

func (f *fakeReports) GetReport(ctx context.Context, id string) (*model.Report, error) {
	if f.report == nil || f.report.ID.Hex() != id {
		return nil, fmt.Errorf("report %s: %w", id, database.ErrNotFound)
	}
	return f.report, nil
}

func (f *fakeReports) ListReports(ctx context.Context, filter database.ReportFilter) ([]model.ReportSummary, error) {
	f.filter = filter
	return []model.ReportSummary{}, nil
}

type fakeJobs struct {
	createErr error
	jobType   string
	payload   model.ReportJobPayload
	requester string
}

func (f *fakeJobs) CreateJob(ctx context.Context, jobType string, payload model.ReportJobPayload, requestedBy string) (*model.Job, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.jobType, f.payload, f.requester = jobType, payload, requestedBy
	return &model.Job{ID: primitive.NewObjectID(), Type: jobType, Status: model.StatusQueued, Payload: payload}, nil
}

func (f *fakeJobs) ProcessJobs(ctx context.Context) error { return nil }
func (f *fakeJobs) GetAvailableJobTypes() map[string]string {
	return map[string]string{model.JobTypeReport: "Report Worker"}
}

func (f *fakeJobs) CancelJob(jobType string) error {
	if jobType != model.JobTypeReport {
		return fmt.Errorf("%w: %s", orchestrator.ErrUnknownJobType, jobType)
	}
	return orchestrator.ErrNotActive
}

func (f *fakeJobs) StopProcessing() {}

func (f *fakeJobs) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	return []model.Job{}, nil
}

func (f *fakeJobs) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return nil, fmt.Errorf("job %s: %w", id, database.ErrNotFound)
}

type testServer struct {
	handler  http.Handler
	sc       *fakeServer
	activity *fakeActivity
	reports  *fakeReports
	jobs     *fakeJobs
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		sc:       &fakeServer{checks: map[string]error{"cache": nil}},
		activity: &fakeActivity{},
		reports:  &fakeReports{},
		jobs:     &fakeJobs{},
	}
	s := &Server{
		sc:     ts.sc,
		ac:     ts.activity,
		rc:     ts.reports,
		jc:     ts.jobs,
		config: config.Config{Report: config.ReportConfig{Timezone: "utc", CompactLimit: 10}},
		now:    func() time.Time { return now },
	}
	ts.handler = s.RegisterRoutes()
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer()

	if w := ts.do(http.MethodGet, "/health", ""); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", w.Code, w.Body.String())
	}
	if w := ts.do(http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Errorf("GET /ready = %d, want 200", w.Code)
	}

	ts.sc.checks["mongodb"] = errors.New("server selection timeout")
	w := ts.do(http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "server selection timeout") {
		t.Errorf("body = %s, want failing check", w.Body.String())
	}
}

func TestInstanceActivityHandler(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "default window", target: "/activity/instances", wantCode: http.StatusOK, wantBody: `"instance":"alpha"`},
		{name: "text", target: "/activity/instances?format=text&atfrom=-1d", wantCode: http.StatusOK, wantBody: "Available"},
		{name: "bad format", target: "/activity/instances?format=xml", wantCode: http.StatusBadRequest},
		{name: "bad atfrom", target: "/activity/instances?atfrom=yesterday", wantCode: http.StatusBadRequest},
		{name: "bad zone", target: "/activity/instances?tz=Mars/Olympus", wantCode: http.StatusBadRequest},
		{name: "absolute atto", target: "/activity/instances?atfrom=%2B1h&atto=2024-03-10%2000:00:00", wantCode: http.StatusOK},
		{name: "store down", target: "/activity/instances", err: fmt.Errorf("%w: timeout", controller.ErrUpstream), wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.activity.err = tt.err

			w := ts.do(http.MethodGet, tt.target, "")
			if w.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d: %s", tt.target, w.Code, tt.wantCode, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestActivityCriteriaResolution(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/activity/players?atfrom=-2h&instance=alpha", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /activity/players = %d: %s", w.Code, w.Body.String())
	}

	if len(ts.activity.seen) != 1 {
		t.Fatalf("controller called %d times, want 1", len(ts.activity.seen))
	}
	got := ts.activity.seen[0]
	want := activity.Window{AtFrom: now.UnixMilli() - 2*activity.HourMillis, AtTo: now.UnixMilli()}
	if got.Window != want || got.Instance != "alpha" || got.TZ != "utc" {
		t.Errorf("criteria = %+v, want window %+v for alpha", got, want)
	}
}

func TestPlayerActivityLimit(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPlayers []string
	}{
		{name: "full ranking without limit", query: "", wantPlayers: []string{"bob", "ann", "cid"}},
		{name: "tail folded into others", query: "?limit=2", wantPlayers: []string{"bob", activity.OthersPlayer}},
		{name: "limit above ranking", query: "?limit=5", wantPlayers: []string{"bob", "ann", "cid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()

			w := ts.do(http.MethodGet, "/activity/players"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("GET /activity/players%s = %d: %s", tt.query, w.Code, w.Body.String())
			}

			var report activity.PlayerReport
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(report.Records) != 1 {
				t.Fatalf("got %d instances, want 1", len(report.Records))
			}

			var names []string
			for _, p := range report.Records[0].Players {
				names = append(names, p.Player)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantPlayers, ",") {
				t.Errorf("players = %v, want %v", names, tt.wantPlayers)
			}
		})
	}
}

func TestPlayerActivityRejectsBadLimit(t *testing.T) {
	ts := newTestServer()

	if w := ts.do(http.MethodGet, "/activity/players?limit=-3", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET /activity/players?limit=-3 = %d, want 400", w.Code)
	}
	if len(ts.activity.seen) != 0 {
		t.Error("controller called for invalid request")
	}
}

func TestChatHandler(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/activity/chat?format=text", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /activity/chat = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	for _, want := range []string{"## 2024-03-10 11:00", "11:05:00  bob: gg"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("body missing %q:\n%s", want, w.Body.String())
		}
	}
}

func TestReportHandlers(t *testing.T) {
	ts := newTestServer()
	ts.reports.report = &model.Report{
		ID:        primitive.NewObjectID(),
		Kind:      model.ReportInstances,
		Instances: &activity.InstanceReport{},
	}

	if w := ts.do(http.MethodGet, "/reports/"+primitive.NewObjectID().Hex(), ""); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown report = %d, want 404", w.Code)
	}

	w := ts.do(http.MethodGet, "/reports/"+ts.reports.report.ID.Hex()+"?format=text", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "No instance activity.") {
		t.Errorf("GET report text = %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(http.MethodGet, "/reports?kind=players&limit=5&offset=10", ""); w.Code != http.StatusOK {
		t.Fatalf("GET /reports = %d", w.Code)
	}
	if f := ts.reports.filter; f.Kind != model.ReportPlayers || f.Limit != 5 || f.Offset != 10 {
		t.Errorf("filter = %+v", f)
	}

	if w := ts.do(http.MethodGet, "/reports?kind=uptime", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET /reports?kind=uptime = %d, want 400", w.Code)
	}
}

func TestCreateJobHandler(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"payload":{"kind":"players","range":"-7d","export":true}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-By", "ops")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("POST /jobs = %d: %s", w.Code, w.Body.String())
	}
	if ts.jobs.jobType != model.JobTypeReport || ts.jobs.requester != "ops" {
		t.Errorf("job type %q requester %q", ts.jobs.jobType, ts.jobs.requester)
	}
	if p := ts.jobs.payload; p.Kind != model.ReportPlayers || p.Range != "-7d" || !p.Export {
		t.Errorf("payload = %+v", p)
	}

	var job model.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Status != model.StatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
}

func TestJobHandlerErrors(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		createErr error
		wantCode  int
	}{
		{name: "invalid job", method: http.MethodPost, target: "/jobs", body: `{"payload":{"kind":"uptime"}}`, createErr: controller.ErrInvalidJob, wantCode: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, target: "/jobs", body: `{"payload":`, wantCode: http.StatusBadRequest},
		{name: "unknown job", method: http.MethodGet, target: "/jobs/" + primitive.NewObjectID().Hex(), wantCode: http.StatusNotFound},
		{name: "bad status", method: http.MethodGet, target: "/jobs?status=paused", wantCode: http.StatusBadRequest},
		{name: "list", method: http.MethodGet, target: "/jobs?status=failed", wantCode: http.StatusOK},
		{name: "types", method: http.MethodGet, target: "/jobs/types", wantCode: http.StatusOK},
		{name: "cancel unknown type", method: http.MethodPost, target: "/jobs/types/rotation/cancel", wantCode: http.StatusNotFound},
		{name: "cancel idle worker", method: http.MethodPost, target: "/jobs/types/report/cancel", wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.jobs.createErr = tt.createErr

			w := ts.do(tt.method, tt.target, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.target, w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	ts.do(http.MethodGet, "/online", "")

	w := ts.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "gamewatch_api_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
}
