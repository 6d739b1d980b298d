package service

import (
	"context"
	"path/filepath"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/pkg/lease"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "studyplan.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.LedgerEntry{}, &model.Plan{}, &model.Task{}, &model.Goal{}, &model.ReminderLog{}))
	return db
}

type fixture struct {
	now      time.Time
	db       *gorm.DB
	settings *SettingsStore
	ledgers  *repository.LedgerRepository
	planRepo *repository.PlanRepository
	heatmaps *HeatmapService
	progress *ProgressService
	plans    *PlanService
	ledger   *LedgerService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{now: now, db: newTestDB(t)}
	clock := func() time.Time { return f.now }

	f.settings = NewSettingsStore(config.DefaultEngineConfig())
	f.ledgers = repository.NewLedgerRepository(f.db)
	f.planRepo = repository.NewPlanRepository(f.db)
	f.heatmaps = NewHeatmapService(f.ledgers, f.settings)
	f.heatmaps.Now = clock
	f.progress = NewProgressService(f.ledgers, f.settings)
	f.plans = NewPlanService(f.planRepo, f.heatmaps, f.progress, lease.NewMemoryLocker(), nil, f.settings,
		config.LeaseConfig{TTL: 5 * time.Second, Wait: 2 * time.Second})
	f.plans.Now = clock
	f.ledger = NewLedgerService(f.ledgers, f.plans)
	f.ledger.Now = clock
	return f
}

// record 直接写入一条带分数的记录，不触发观察者
func (f *fixture) record(t *testing.T, studentID, subject, topic string, score float64, at time.Time) {
	t.Helper()
	require.NoError(t, f.ledgers.Append(context.Background(), &model.LedgerEntry{
		StudentID:       studentID,
		Subject:         subject,
		Topic:           topic,
		Kind:            model.LedgerTest,
		Score:           floatPtr(score),
		DurationMinutes: 30,
		Timestamp:       at,
	}))
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func scored(subject, topic string, score float64, at time.Time) model.LedgerEntry {
	return model.LedgerEntry{
		StudentID:       "s1",
		Subject:         subject,
		Topic:           topic,
		Kind:            model.LedgerTest,
		Score:           floatPtr(score),
		DurationMinutes: 30,
		Timestamp:       at,
	}
}

// dailyMinutes 按本地日期汇总任务预估时长
func dailyMinutes(tasks []model.Task, loc *time.Location) map[string]int {
	out := make(map[string]int)
	for _, t := range tasks {
		out[t.DueDate.In(loc).Format("2006-01-02")] += t.EstimatedTimeMinutes
	}
	return out
}
