package database

import (
	"path/filepath"
	"studyplan_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMigrateCreatesEngineTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	// 重复迁移不报错
	require.NoError(t, Migrate(db))

	for _, m := range []interface{}{&model.LedgerEntry{}, &model.Plan{}, &model.Task{}, &model.Goal{}, &model.ReminderLog{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
}
