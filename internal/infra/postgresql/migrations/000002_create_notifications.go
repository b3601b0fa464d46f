package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/talentgrid/interview-engine/internal/repository"
	"gorm.io/gorm"
)

func createNotificationsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationModel{}, &repository.ChannelDeliveryModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, recipient_type, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (recipient_id, recipient_type) WHERE read_at IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_broadcast_id ON notifications (broadcast_id) WHERE broadcast_id IS NOT NULL`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_channels_unique ON notification_channels (notification_id, channel)`,
				`CREATE INDEX IF NOT EXISTS idx_notification_channels_retry ON notification_channels (next_retry_at) WHERE status = 'PENDING' AND next_retry_at IS NOT NULL`,
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
				&repository.ChannelDeliveryModel{},
				&repository.NotificationModel{},
			)
		},
	}
}
