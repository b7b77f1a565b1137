package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/faultline/internal/infra/postgresql"
	"github.com/kursadbilgin/faultline/internal/queue"
	"github.com/kursadbilgin/faultline/internal/repository"
	"github.com/kursadbilgin/faultline/internal/template"
	"go.uber.org/zap"
)

type publisherFactory func(url string) (queue.Publisher, error)

// templateLoaderFactory opens a loader and returns a func releasing it.
type templateLoaderFactory func(ctx context.Context, dsn string) (template.Loader, func(), error)

type backends struct {
	publisher publisherFactory
	templates templateLoaderFactory
}

func defaultBackends(logger *zap.Logger) backends {
	return backends{
		publisher: func(url string) (queue.Publisher, error) {
			if strings.TrimSpace(url) == "" {
				return nil, fmt.Errorf("rabbitmq url is required (--amqp-url or RABBITMQ_URL)")
			}
			return queue.NewRabbitMQPublisher(url, nil, logger)
		},
		templates: func(ctx context.Context, dsn string) (template.Loader, func(), error) {
			if strings.TrimSpace(dsn) == "" {
				return nil, nil, fmt.Errorf("database dsn is required (--dsn or DATABASE_DSN)")
			}
			db, err := postgresql.NewPostgres(ctx, dsn, postgresql.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
			if err != nil {
				return nil, nil, err
			}
			release := func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}
			return repository.NewGormTemplateRepo(db), release, nil
		},
	}
}
