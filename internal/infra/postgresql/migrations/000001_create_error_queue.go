package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/faultline/internal/repository"
	"gorm.io/gorm"
)

func createErrorQueueTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_error_queue",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ErrorRecordModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_error_queue_issue_status_created ON error_queue (issue_status, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_error_queue_orig_system ON error_queue (orig_system, sub_system)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ErrorRecordModel{})
		},
	}
}
