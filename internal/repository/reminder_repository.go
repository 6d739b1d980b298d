package repository

import (
	"context"
	"studyplan_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReminderRepository struct {
	DB *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{DB: db}
}

// Record 写入当日提醒记录并在同一事务中执行 publish。
// 当天已有记录时返回 false；publish 失败或 ctx 取消则整体回滚，不留下半条状态
func (r *ReminderRepository) Record(ctx context.Context, log *model.ReminderLog, publish func(context.Context) error) (bool, error) {
	inserted := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(log)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if publish != nil {
			if err := publish(ctx); err != nil {
				return err
			}
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Exists 当天是否已经提醒过
func (r *ReminderRepository) Exists(ctx context.Context, studentID, localDate string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ReminderLog{}).
		Where("student_id = ? AND local_date = ?", studentID, localDate).
		Count(&count).Error
	return count > 0, err
}
