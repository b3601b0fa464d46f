package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/talentgrid/interview-engine/internal/repository"
	"gorm.io/gorm"
)

// The directory tables are owned by the wider platform; in a shared database
// deployment these AutoMigrate calls are no-ops against the existing schema.
func createDirectoryTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_directory",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(
				&repository.UserModel{},
				&repository.DeviceSubscriptionModel{},
				&repository.CompanyModel{},
				&repository.JobModel{},
				&repository.ApplicationModel{},
			); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role)`,
				`CREATE INDEX IF NOT EXISTS idx_device_subscriptions_user_id ON device_subscriptions (user_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&repository.DeviceSubscriptionModel{},
				&repository.ApplicationModel{},
				&repository.JobModel{},
				&repository.UserModel{},
				&repository.CompanyModel{},
			)
		},
	}
}
