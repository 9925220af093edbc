package controller

import (
	"context"
	"gamewatch/internal/activity"
	"gamewatch/internal/database"
	"gamewatch/internal/model"
	"gamewatch/internal/orchestrator"
	"gamewatch/pkg/store"
	"io"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSource struct {
	instances      []activity.Instance
	instanceEvents []activity.InstanceEvent
	lastInstance   []activity.InstanceEvent
	playerEvents   []activity.PlayerEvent
	lastPlayer     []activity.PlayerEvent
	chats          []activity.ChatRecord
	err            error

	calls atomic.Int32

	mu           sync.Mutex
	eventKinds   [][]activity.PlayerEventKind
	lastCriteria store.Criteria
}

func (f *fakeSource) Instances(ctx context.Context) ([]activity.Instance, error) {
	f.calls.Add(1)
	return f.instances, f.err
}

func (f *fakeSource) InstanceEvents(ctx context.Context, c store.Criteria) ([]activity.InstanceEvent, error) {
	f.mu.Lock()
	f.lastCriteria = c
	f.mu.Unlock()
	return f.instanceEvents, nil
}

func (f *fakeSource) LastInstanceEvents(ctx context.Context, c store.Criteria) ([]activity.InstanceEvent, error) {
	return f.lastInstance, nil
}

func (f *fakeSource) PlayerEvents(ctx context.Context, c store.Criteria, events []activity.PlayerEventKind) ([]activity.PlayerEvent, error) {
	f.mu.Lock()
	f.eventKinds = append(f.eventKinds, events)
	f.lastCriteria = c
	f.mu.Unlock()
	return f.playerEvents, f.err
}

func (f *fakeSource) LastPlayerEvents(ctx context.Context, c store.Criteria) ([]activity.PlayerEvent, error) {
	return f.lastPlayer, nil
}

func (f *fakeSource) Chats(ctx context.Context, c store.Criteria) ([]activity.ChatRecord, error) {
	return f.chats, f.err
}

type fakeReportDB struct {
	reports   map[primitive.ObjectID]*model.Report
	exportURL map[primitive.ObjectID]string
	createErr error
}

func newFakeReportDB() *fakeReportDB {
	return &fakeReportDB{
		reports:   map[primitive.ObjectID]*model.Report{},
		exportURL: map[primitive.ObjectID]string{},
	}
}

func (f *fakeReportDB) CreateReport(ctx context.Context, report *model.Report) error {
	if f.createErr != nil {
		return f.createErr
	}
	report.ID = primitive.NewObjectID()
	f.reports[report.ID] = report
	return nil
}

func (f *fakeReportDB) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, database.ErrNotFound
	}
	report, ok := f.reports[objectID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return report, nil
}

func (f *fakeReportDB) ListReports(ctx context.Context, filter database.ReportFilter) ([]model.ReportSummary, error) {
	summaries := []model.ReportSummary{}
	for _, r := range f.reports {
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		summaries = append(summaries, model.ReportSummary{ID: r.ID, Kind: r.Kind, Criteria: r.Criteria})
	}
	return summaries, nil
}

func (f *fakeReportDB) SetReportExportURL(ctx context.Context, id primitive.ObjectID, url string) error {
	if _, ok := f.reports[id]; !ok {
		return database.ErrNotFound
	}
	f.exportURL[id] = url
	return nil
}

type fakeFiles struct {
	names  []string
	bodies []string
}

func (f *fakeFiles) UploadFile(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.names = append(f.names, name)
	f.bodies = append(f.bodies, string(data))
	return "https://exports.example/" + name, nil
}

func (f *fakeFiles) TestConnection(ctx context.Context) error { return nil }

type statusUpdate struct {
	status model.JobStatus
	errMsg string
}

type fakeJobDB struct {
	jobs      map[string]*model.Job
	updates   []statusUpdate
	completed map[primitive.ObjectID]primitive.ObjectID
}

func newFakeJobDB() *fakeJobDB {
	return &fakeJobDB{
		jobs:      map[string]*model.Job{},
		completed: map[primitive.ObjectID]primitive.ObjectID{},
	}
}

func (f *fakeJobDB) CreateJob(ctx context.Context, job *model.Job) error {
	f.jobs[job.ID.Hex()] = job
	return nil
}

func (f *fakeJobDB) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobDB) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	jobs := []model.Job{}
	for _, job := range f.jobs {
		if status == "" || job.Status == status {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (f *fakeJobDB) UpdateJobStatus(ctx context.Context, id primitive.ObjectID, status model.JobStatus, errMsg string) error {
	job, ok := f.jobs[id.Hex()]
	if !ok {
		return database.ErrNotFound
	}
	job.Status = status
	job.Error = errMsg
	f.updates = append(f.updates, statusUpdate{status: status, errMsg: errMsg})
	return nil
}

func (f *fakeJobDB) CompleteJob(ctx context.Context, id primitive.ObjectID, reportID primitive.ObjectID) error {
	job, ok := f.jobs[id.Hex()]
	if !ok {
		return database.ErrNotFound
	}
	job.Status = model.StatusCompleted
	job.ReportID = &reportID
	f.completed[id] = reportID
	return nil
}

type published struct {
	exchange   string
	routingKey string
	body       []byte
	headers    amqp.Table
}

type fakeRabbit struct {
	published  []published
	publishErr error
}

func (f *fakeRabbit) Close() error { return nil }
func (f *fakeRabbit) DeclareExchange(name, kind string) error { return nil }
func (f *fakeRabbit) DeclareQueue(name string) (amqp.Queue, error) { return amqp.Queue{Name: name}, nil }
func (f *fakeRabbit) BindQueue(queueName, exchangeName, key string) error { return nil }
func (f *fakeRabbit) Health() error { return nil }

func (f *fakeRabbit) Publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, routingKey, body, headers})
	return nil
}

func (f *fakeRabbit) Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error) {
	return make(chan amqp.Delivery), nil
}

type fakeWorker struct {
	result orchestrator.Result
	err    error
	jobs   []*model.Job
}

func (f *fakeWorker) StartWorker(ctx context.Context, job *model.Job) (orchestrator.Result, error) {
	f.jobs = append(f.jobs, job)
	return f.result, f.err
}

func (f *fakeWorker) Cancel() error { return orchestrator.ErrNotActive }
func (f *fakeWorker) Name() string { return "Fake Worker" }
func (f *fakeWorker) IsActive() bool { return false }
func (f *fakeWorker) Type() string { return model.JobTypeReport }
func (f *fakeWorker) ActiveJobID() *primitive.ObjectID { return nil }

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}
