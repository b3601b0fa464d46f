package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/talentgrid/interview-engine/internal/repository"
	"gorm.io/gorm"
)

func createInterviewsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_interviews",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.InterviewModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_interviews_candidate_created ON interviews (candidate_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_interviews_company_created ON interviews (company_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_interviews_overall_status ON interviews (overall_status)`,
				// One active interview per application; terminal states free the slot.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_interviews_active_application ON interviews (application_id)
					WHERE application_id IS NOT NULL AND overall_status IN ('PENDING_APPROVAL', 'SCHEDULED', 'CONFIRMED')`,
				`CREATE INDEX IF NOT EXISTS idx_interviews_reminder_due ON interviews (scheduled_date)
					WHERE overall_status = 'CONFIRMED' AND reminder_sent_at IS NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.InterviewModel{})
		},
	}
}
