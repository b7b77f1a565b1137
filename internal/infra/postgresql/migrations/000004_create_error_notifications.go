package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/faultline/internal/repository"
	"gorm.io/gorm"
)

func createErrorNotificationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_error_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_error_notifications_record_id ON error_notifications (record_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}
