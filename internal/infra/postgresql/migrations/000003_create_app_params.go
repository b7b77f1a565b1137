package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/faultline/internal/repository"
	"gorm.io/gorm"
)

func createAppParamsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_app_params",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ParamModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ParamModel{})
		},
	}
}
