package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/scoped"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	LoadAllTemplates(ctx context.Context) ([]domain.Template, error)
}

type ParamRepository interface {
	ReadConfigParam(ctx context.Context, name string) (string, bool, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

// LoadAllTemplates returns every stored template row, including unusable ones.
func (r *GormTemplateRepo) LoadAllTemplates(ctx context.Context) ([]domain.Template, error) {
	templates := make([]domain.Template, 0)

	err := scoped.Use(ctx, r.openRows, func(ctx context.Context, rows *sql.Rows) error {
		for rows.Next() {
			var id, body sql.NullString
			if err := rows.Scan(&id, &body); err != nil {
				return fmt.Errorf("failed to scan template row: %w", err)
			}
			templates = append(templates, domain.Template{ID: id.String, Body: body.String})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *GormTemplateRepo) openRows(ctx context.Context) (*sql.Rows, scoped.Release, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&TemplateModel{}).
		Select("template_id", "template").
		Rows()
	if err != nil {
		return nil, nil, err
	}
	return rows, rows.Close, nil
}

type GormParamRepo struct {
	db *gorm.DB
}

func NewGormParamRepo(db *gorm.DB) *GormParamRepo {
	return &GormParamRepo{db: db}
}

// ReadConfigParam returns the last stored value for name. Blank and sentinel
// values are reported as absent.
func (r *GormParamRepo) ReadConfigParam(ctx context.Context, name string) (string, bool, error) {
	var value string
	found := false

	err := scoped.Use(ctx, func(ctx context.Context) (*sql.Rows, scoped.Release, error) {
		rows, err := r.db.WithContext(ctx).
			Model(&ParamModel{}).
			Select("param_value").
			Where("param_name = ?", name).
			Rows()
		if err != nil {
			return nil, nil, err
		}
		return rows, rows.Close, nil
	}, func(ctx context.Context, rows *sql.Rows) error {
		for rows.Next() {
			var current sql.NullString
			if err := rows.Scan(&current); err != nil {
				return fmt.Errorf("failed to scan param %q: %w", name, err)
			}
			value = current.String
			found = true
		}
		return rows.Err()
	})
	if err != nil {
		return "", false, err
	}

	if !found || domain.IsSentinel(value) {
		return "", false, nil
	}
	return value, true, nil
}
