package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/talentgrid/interview-engine/internal/repository"
	"gorm.io/gorm"
)

func createBroadcastsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_broadcasts",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.BroadcastModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BroadcastModel{})
		},
	}
}
