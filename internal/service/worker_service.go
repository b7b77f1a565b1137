package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService drains the report queue and hands every message to ReportError.
type WorkerService struct {
	consumer    queue.Consumer
	reporter    Reporter
	queueName   string
	concurrency int
	logger      *zap.Logger
}

func NewWorkerService(
	consumer queue.Consumer,
	reporter Reporter,
	queueName string,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if strings.TrimSpace(queueName) == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		reporter:    reporter,
		queueName:   queueName,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Start consumes the report queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", s.queueName),
			)

			err := s.consumer.Consume(groupCtx, s.queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", s.queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", s.queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.RecordMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}

	record := msg.ToDomain()
	// The queued id is the producer's reference; storage assigns its own.
	record.ID = ""

	outcome := s.reporter.ReportError(ctx, record)
	if outcome.State == StateNormalized || outcome.State == StateReceived {
		return fmt.Errorf("queued error report was not persisted: %w", outcome.Err)
	}
	return nil
}
