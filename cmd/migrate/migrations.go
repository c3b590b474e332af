package main

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/toolmap"
)

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectToolCheck,
		addUsageEventIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addProjectToolCheck restricts projects.tool to the storage enum.
func addProjectToolCheck(db *gorm.DB) error {
	quoted := make([]string, 0, 4)
	for _, t := range toolmap.All() {
		quoted = append(quoted, "'"+string(t.Storage)+"'")
	}
	if err := db.Exec(`ALTER TABLE projects DROP CONSTRAINT IF EXISTS chk_projects_tool`).Error; err != nil {
		return err
	}
	return db.Exec(fmt.Sprintf(
		`ALTER TABLE projects ADD CONSTRAINT chk_projects_tool CHECK (tool IS NULL OR tool IN (%s))`,
		strings.Join(quoted, ", "),
	)).Error
}

// addUsageEventIndexes backs the per-tool summary and metadata lookups.
func addUsageEventIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_usage_events_metadata
		ON usage_events USING GIN (metadata jsonb_path_ops)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_usage_events_user_tool
		ON usage_events(user_id, tool, action)
	`).Error
}
