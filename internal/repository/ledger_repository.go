package repository

import (
	"context"
	"errors"
	"studyplan_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// LedgerRepository 学习记录只追加存储，没有更新/删除入口
type LedgerRepository struct {
	DB *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// Append 追加一条学习记录
func (r *LedgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

// FindByStudent 按时间升序返回学生的学习记录，window 为空时返回全部历史
func (r *LedgerRepository) FindByStudent(ctx context.Context, studentID string, window *model.DateRange) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	db := r.DB.WithContext(ctx).Where("student_id = ?", studentID)
	if window != nil {
		db = db.Where("timestamp >= ? AND timestamp < ?", window.Start, window.End)
	}
	err := db.Order("timestamp ASC, id ASC").Find(&entries).Error
	return entries, err
}

// LatestActivity 最近一次学习记录的时间，没有记录时返回 nil
func (r *LedgerRepository) LatestActivity(ctx context.Context, studentID string) (*time.Time, error) {
	var entry model.LedgerEntry
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("timestamp DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := entry.Timestamp
	return &ts, nil
}
