package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultTemplateBody = `<html><body>
<p>APP_NAME reported an error on ENV_ADDR at DATE_TIME.</p>
<table border="1" cellpadding="4">
<tr><td>Original System</td><td>ORIG_SYS</td></tr>
<tr><td>Sub-System</td><td>SUB_SYS</td></tr>
<tr><td>Quote ID</td><td>QUOTE_ID</td></tr>
<tr><td>Scenario ID</td><td>SCEN_ID</td></tr>
<tr><td>User ID</td><td>USER_ID</td></tr>
<tr><td>Status</td><td>APP_STATUS</td></tr>
<tr><td>Description</td><td>APP_DESC</td></tr>
<tr><td>Original Input Data</td><td>ORIG_INPUT</td></tr>
<tr><td>Error Description</td><td>ERR_DESC</td></tr>
<tr><td>Error Stack</td><td><pre>ERR_STACK</pre></td></tr>
</table>
</body></html>`

func createEmailTemplatesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_email_templates",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TemplateModel{}); err != nil {
				return err
			}
			seed := repository.TemplateModel{
				TemplateID: domain.DefaultTemplateID,
				Template:   defaultTemplateBody,
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}
