package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/queue"
	"github.com/kursadbilgin/faultline/internal/render"
	"github.com/kursadbilgin/faultline/internal/repository"
	"go.uber.org/zap"
)

type fakeRecordRepo struct {
	mu        sync.Mutex
	persistFn func(ctx context.Context, r *domain.ErrorRecord) (string, error)
	persisted []domain.ErrorRecord
}

func (f *fakeRecordRepo) Persist(ctx context.Context, r *domain.ErrorRecord) (string, error) {
	f.mu.Lock()
	f.persisted = append(f.persisted, *r)
	f.mu.Unlock()
	if f.persistFn != nil {
		return f.persistFn(ctx, r)
	}
	return "rec-1", nil
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	return nil, domain.ErrNotFound
}

type sentMail struct {
	subject   string
	body      string
	recipient string
}

type fakeMailer struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, subject, body, recipient string) error
	sent   []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, subject string, body string, recipient string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{subject: subject, body: body, recipient: recipient})
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, subject, body, recipient)
	}
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type publishedMessage struct {
	queue string
	msg   queue.RecordMessage
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queue string, msg queue.RecordMessage) error
	published []publishedMessage
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.RecordMessage) error {
	f.published = append(f.published, publishedMessage{queue: queueName, msg: msg})
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, recipient string) (bool, error)
}

func (f *fakeRateLimiter) Allow(ctx context.Context, recipient string) (bool, error) {
	return f.allowFn(ctx, recipient)
}

type fakeNotificationLogRepo struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, l *domain.NotificationLog) error
	entries  []*domain.NotificationLog
}

func (f *fakeNotificationLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	f.mu.Lock()
	f.entries = append(f.entries, l)
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

type fakeTemplates map[string]string

func (f fakeTemplates) Get(ctx context.Context, id string) (string, bool) {
	body, ok := f[id]
	return body, ok
}

var (
	_ repository.ErrorRecordRepository     = (*fakeRecordRepo)(nil)
	_ repository.NotificationLogRepository = (*fakeNotificationLogRepo)(nil)
)

type coordinatorFixture struct {
	records       *fakeRecordRepo
	mailer        *fakeMailer
	publisher     *fakePublisher
	notifications *fakeNotificationLogRepo
	templates     TemplateSource
	limiter       *fakeRateLimiter
	cfg           CoordinatorConfig
	logger        *zap.Logger
}

func newCoordinatorFixture() *coordinatorFixture {
	return &coordinatorFixture{
		records:       &fakeRecordRepo{},
		mailer:        &fakeMailer{},
		publisher:     &fakePublisher{},
		notifications: &fakeNotificationLogRepo{},
		templates:     fakeTemplates{},
		cfg: CoordinatorConfig{
			Host:              "test-host",
			DefaultTemplateID: "T1",
			ReportQueue:       "errors.report",
			EventsQueue:       "errors.events",
			StorageTimeout:    time.Second,
			MailTimeout:       time.Second,
			QueueTimeout:      time.Second,
		},
	}
}

func (f *coordinatorFixture) build(t testing.TB) *Coordinator {
	t.Helper()

	renderer, err := render.NewRenderer(render.Options{
		AppName: "Pricing Engine",
		EnvAddr: "test-host",
	})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	deps := CoordinatorDeps{
		Records:       f.records,
		Notifications: f.notifications,
		Templates:     f.templates,
		Renderer:      renderer,
		Mailer:        f.mailer,
		Publisher:     f.publisher,
	}
	if f.limiter != nil {
		deps.RateLimiter = f.limiter
	}

	c, err := NewCoordinator(deps, f.cfg, f.logger)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC) }
	return c
}
