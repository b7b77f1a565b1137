package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/provider"
	"github.com/kursadbilgin/faultline/internal/queue"
	"github.com/kursadbilgin/faultline/internal/ratelimit"
	"github.com/kursadbilgin/faultline/internal/render"
	"github.com/kursadbilgin/faultline/internal/repository"
	"go.uber.org/zap"
)

// State is the position of one reported failure in the dispatch pipeline.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateNormalized    State = "NORMALIZED"
	StatePersisted     State = "PERSISTED"
	StateNotified      State = State(domain.NotificationNotified)
	StateNotifySkipped State = State(domain.NotificationSkipped)
	StateNotifyFailed  State = State(domain.NotificationFailed)
)

func (s State) String() string { return string(s) }

// layoutTemplateID marks notifications rendered with the structural layout.
const layoutTemplateID = "layout"

// Outcome describes how one ReportError call ended. It is informational only.
type Outcome struct {
	RecordID string
	State    State
	Enqueued bool
	Done     bool
	Err      error
}

// Reporter is the error reporting entry point used by the HTTP surface and the queue worker.
type Reporter interface {
	ReportError(ctx context.Context, record domain.ErrorRecord) Outcome
	PublishToQueue(ctx context.Context, record domain.ErrorRecord) bool
}

// TemplateSource resolves a template body by id.
type TemplateSource interface {
	Get(ctx context.Context, id string) (string, bool)
}

type CoordinatorDeps struct {
	Records       repository.ErrorRecordRepository
	Notifications repository.NotificationLogRepository
	Templates     TemplateSource
	Renderer      *render.Renderer
	Mailer        provider.Mailer
	Publisher     queue.Publisher
	RateLimiter   ratelimit.RateLimiter
	Metrics       *observability.Metrics
}

type CoordinatorConfig struct {
	Host                   string
	DefaultTemplateID      string
	ReportQueue            string
	EventsQueue            string
	PublishPersistedEvents bool
	StorageTimeout         time.Duration
	MailTimeout            time.Duration
	QueueTimeout           time.Duration
}

var _ Reporter = (*Coordinator)(nil)

// Coordinator runs normalize, persist, optional enqueue and optional notify
// for each reported failure. Collaborator failures are logged and contained;
// nothing escapes to the caller.
type Coordinator struct {
	records       repository.ErrorRecordRepository
	notifications repository.NotificationLogRepository
	templates     TemplateSource
	renderer      *render.Renderer
	mailer        provider.Mailer
	publisher     queue.Publisher
	limiter       ratelimit.RateLimiter
	metrics       *observability.Metrics
	logger        *zap.Logger
	cfg           CoordinatorConfig
	now           func() time.Time
}

func NewCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig, logger *zap.Logger) (*Coordinator, error) {
	if deps.Records == nil {
		return nil, fmt.Errorf("error record repository is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if cfg.PublishPersistedEvents && (deps.Publisher == nil || strings.TrimSpace(cfg.EventsQueue) == "") {
		return nil, fmt.Errorf("publisher and events queue are required to publish persisted events")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.DefaultTemplateID) == "" {
		cfg.DefaultTemplateID = domain.DefaultTemplateID
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = observability.HostIdentifier("")
	}

	return &Coordinator{
		records:       deps.Records,
		notifications: deps.Notifications,
		templates:     deps.Templates,
		renderer:      deps.Renderer,
		mailer:        deps.Mailer,
		publisher:     deps.Publisher,
		limiter:       deps.RateLimiter,
		metrics:       deps.Metrics,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}, nil
}

// ReportError records one failure and, when requested, mails a notification
// about it. It never panics and never returns an error.
func (c *Coordinator) ReportError(ctx context.Context, record domain.ErrorRecord) (out Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}
	out.State = StateReceived
	c.metrics.IncReportReceived()

	logger := observability.WithContextLogger(c.logger, ctx).With(zap.String("host", c.cfg.Host))
	defer func() {
		if p := recover(); p != nil {
			out.Err = fmt.Errorf("error reporting panicked: %v", p)
			logger.Error("error reporting aborted",
				zap.String("recordId", out.RecordID),
				zap.String("state", out.State.String()),
				zap.Any("panic", p),
				zap.Stack("stacktrace"),
			)
		}
		out.Done = true
	}()

	if domain.IsSentinel(record.ErrorStack) && record.Cause != nil {
		record.ErrorStack = domain.CaptureStack(record.Cause, c.cfg.Host)
	}

	normalized := record.Normalize(c.cfg.DefaultTemplateID)
	out.State = StateNormalized

	if err := c.stage(ctx, domain.StagePersist, c.cfg.StorageTimeout, logger, func(ctx context.Context) error {
		id, err := c.records.Persist(ctx, &normalized)
		if err != nil {
			return err
		}
		normalized.ID = id
		return nil
	}); err != nil {
		out.Err = err
		return out
	}

	out.RecordID = normalized.ID
	out.State = StatePersisted
	logger = logger.With(zap.String("recordId", normalized.ID))

	if c.cfg.PublishPersistedEvents {
		out.Enqueued = c.publish(ctx, domain.StageEnqueue, c.cfg.EventsQueue, normalized, logger) == nil
	}

	state, templateID, err := c.notify(ctx, normalized, logger)
	out.State = State(state)
	out.Err = err
	c.metrics.IncNotification(state.String())

	c.recordNotification(ctx, normalized, state, templateID, err, logger)

	logger.Info("error reported",
		zap.String("state", out.State.String()),
		zap.Bool("enqueued", out.Enqueued),
	)
	return out
}

// PublishToQueue hands the record to the report queue for asynchronous
// processing. It reports whether the broker accepted the message.
func (c *Coordinator) PublishToQueue(ctx context.Context, record domain.ErrorRecord) (published bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(c.logger, ctx).With(zap.String("host", c.cfg.Host))
	defer func() {
		if p := recover(); p != nil {
			published = false
			logger.Error("queue publish aborted", zap.Any("panic", p), zap.Stack("stacktrace"))
		}
	}()

	if c.publisher == nil || strings.TrimSpace(c.cfg.ReportQueue) == "" {
		logger.Warn("queue publish skipped: no publisher configured")
		return false
	}

	if domain.IsSentinel(record.ErrorStack) && record.Cause != nil {
		record.ErrorStack = domain.CaptureStack(record.Cause, c.cfg.Host)
	}

	return c.publish(ctx, domain.StageEnqueue, c.cfg.ReportQueue, record, logger) == nil
}

func (c *Coordinator) publish(ctx context.Context, stage domain.Stage, queueName string, record domain.ErrorRecord, logger *zap.Logger) error {
	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	msg := queue.NewRecordMessage(record, correlationID)

	return c.stage(ctx, stage, c.cfg.QueueTimeout, logger.With(zap.String("queue", queueName)), func(ctx context.Context) error {
		return c.publisher.Publish(ctx, queueName, msg)
	})
}

func (c *Coordinator) notify(ctx context.Context, record domain.ErrorRecord, logger *zap.Logger) (domain.NotificationState, string, error) {
	if !record.ShouldNotify() {
		return domain.NotificationSkipped, "", nil
	}

	at := c.now()
	templateID := layoutTemplateID
	var body string

	templateBody, found := c.lookupTemplate(ctx, record.NotificationTemplateID)
	if found {
		templateID = record.NotificationTemplateID
	}

	if err := c.stage(ctx, domain.StageRender, 0, logger.With(zap.String("templateId", templateID)), func(ctx context.Context) error {
		var err error
		if found {
			body, err = c.renderer.RenderTemplate(templateBody, record, at)
		} else {
			body, err = c.renderer.RenderLayout(record, at)
		}
		return err
	}); err != nil {
		return domain.NotificationFailed, templateID, err
	}

	if c.limiter != nil {
		allowed := true
		// Limiter failures fail open.
		_ = c.stage(ctx, domain.StageRateLimit, c.cfg.StorageTimeout, logger, func(ctx context.Context) error {
			ok, err := c.limiter.Allow(ctx, record.MailAddress)
			if err != nil {
				return err
			}
			allowed = ok
			return nil
		})
		if !allowed {
			logger.Warn("notification suppressed by recipient rate limit")
			return domain.NotificationSkipped, templateID, nil
		}
	}

	subject := c.renderer.Subject(at)
	if err := c.stage(ctx, domain.StageMail, c.cfg.MailTimeout, logger.With(zap.String("templateId", templateID)), func(ctx context.Context) error {
		return c.mailer.Send(ctx, subject, body, record.MailAddress)
	}); err != nil {
		return domain.NotificationFailed, templateID, err
	}

	return domain.NotificationNotified, templateID, nil
}

func (c *Coordinator) lookupTemplate(ctx context.Context, id string) (string, bool) {
	if c.templates == nil {
		return "", false
	}

	lookupCtx := ctx
	if c.cfg.StorageTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.cfg.StorageTimeout)
		defer cancel()
	}
	return c.templates.Get(lookupCtx, id)
}

func (c *Coordinator) recordNotification(
	ctx context.Context,
	record domain.ErrorRecord,
	state domain.NotificationState,
	templateID string,
	notifyErr error,
	logger *zap.Logger,
) {
	if c.notifications == nil {
		return
	}

	var errText *string
	if notifyErr != nil {
		value := notifyErr.Error()
		errText = &value
	}

	entry := &domain.NotificationLog{
		RecordID:   record.ID,
		State:      state,
		Recipient:  record.MailAddress,
		TemplateID: domain.OrSentinel(templateID),
		Error:      errText,
		CreatedAt:  c.now().UTC(),
	}

	_ = c.stage(ctx, domain.StageRecordLog, c.cfg.StorageTimeout, logger, func(ctx context.Context) error {
		return c.notifications.Create(ctx, entry)
	})
}

// stage runs one collaborator call under its deadline. A failure or panic is
// logged, counted and returned as a *domain.StageError.
func (c *Coordinator) stage(
	ctx context.Context,
	stage domain.Stage,
	timeout time.Duration,
	logger *zap.Logger,
	fn func(ctx context.Context) error,
) error {
	stageCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := runStage(stageCtx, fn)
	c.metrics.ObserveStageDuration(stage.String(), time.Since(start))
	if err == nil {
		return nil
	}

	stageErr := domain.NewStageError(stage, err)
	c.metrics.IncStageFailure(stage.String())
	logger.Error("error reporting stage failed",
		zap.String("stage", stage.String()),
		zap.Bool("transient", provider.IsTransient(err)),
		zap.Error(stageErr),
	)
	return stageErr
}

func runStage(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
