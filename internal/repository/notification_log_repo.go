package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/faultline/internal/domain"
	"gorm.io/gorm"
)

type NotificationLogRepository interface {
	Create(ctx context.Context, l *domain.NotificationLog) error
}

type GormNotificationLogRepo struct {
	db *gorm.DB
}

func NewGormNotificationLogRepo(db *gorm.DB) *GormNotificationLogRepo {
	return &GormNotificationLogRepo{db: db}
}

func (r *GormNotificationLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	if l == nil {
		return errors.New("notification log is required")
	}
	if strings.TrimSpace(l.ID) == "" {
		l.ID = uuid.NewString()
	}

	return r.db.WithContext(ctx).Create(notificationLogModelFromDomain(l)).Error
}
