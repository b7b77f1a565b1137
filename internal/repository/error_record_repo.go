package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/faultline/internal/domain"
	"gorm.io/gorm"
)

type ErrorRecordRepository interface {
	Persist(ctx context.Context, r *domain.ErrorRecord) (string, error)
	GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error)
}

type GormErrorRecordRepo struct {
	db *gorm.DB
}

func NewGormErrorRecordRepo(db *gorm.DB) *GormErrorRecordRepo {
	return &GormErrorRecordRepo{db: db}
}

// Persist writes the record and returns its id. A missing id is generated.
func (r *GormErrorRecordRepo) Persist(ctx context.Context, record *domain.ErrorRecord) (string, error) {
	if record == nil {
		return "", errors.New("error record is required")
	}

	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}

	model := errorRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", err
	}

	*record = *mergePersisted(record, errorRecordModelToDomain(model))
	return record.ID, nil
}

func (r *GormErrorRecordRepo) GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	var model ErrorRecordModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return errorRecordModelToDomain(&model), nil
}

// mergePersisted keeps in-memory-only fields that the table does not store.
func mergePersisted(original *domain.ErrorRecord, persisted *domain.ErrorRecord) *domain.ErrorRecord {
	persisted.Cause = original.Cause
	return persisted
}
