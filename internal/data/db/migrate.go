package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/fred-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.All()...)
}

// EnsureIndexes adds the Postgres-only partial indexes that gorm tags cannot express.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Operator queue: unhandled flags, newest first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_crisis_flag_unhandled_created
		ON crisis_flag (created_at DESC)
		WHERE handled = false;
	`).Error; err != nil {
		return fmt.Errorf("create idx_crisis_flag_unhandled_created: %w", err)
	}

	// Conversation listing ignores soft-deleted rows.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversation_user_live
		ON conversation (user_id, updated_at DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_conversation_user_live: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIndexes(s.db); err != nil {
		s.log.Error("Index migration failed", "error", err)
		return err
	}
	return nil
}
