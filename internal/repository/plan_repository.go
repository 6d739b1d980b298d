package repository

import (
	"context"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanRepository 计划聚合根的存取，任务和目标总是整表替换
type PlanRepository struct {
	DB *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{DB: db}
}

func preloadChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("DailyTasks", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Preload("WeeklyGoals", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

// FindByID 根据ID查找计划（含任务与目标）
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	var plan model.Plan
	err := preloadChildren(r.DB.WithContext(ctx)).First(&plan, "id = ?", id).Error
	return &plan, err
}

// FindActiveByStudent 查找学生当前生效的计划
func (r *PlanRepository) FindActiveByStudent(ctx context.Context, studentID string) (*model.Plan, error) {
	var plan model.Plan
	err := preloadChildren(r.DB.WithContext(ctx)).
		Where("student_id = ? AND status = ?", studentID, model.PlanActive).
		Order("created_at DESC").
		First(&plan).Error
	return &plan, err
}

// ListActiveStudentIDs 拥有生效计划的学生，供提醒扫描使用
func (r *PlanRepository) ListActiveStudentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Plan{}).
		Where("status = ?", model.PlanActive).
		Distinct().
		Pluck("student_id", &ids).Error
	return ids, err
}

// ReplaceActive 在同一事务内归档学生的旧计划并写入新计划，保证最多一个生效计划
func (r *PlanRepository) ReplaceActive(ctx context.Context, plan *model.Plan, archivedAt time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Plan{}).
			Where("student_id = ? AND status = ?", plan.StudentID, model.PlanActive).
			Updates(map[string]interface{}{
				"status":      model.PlanArchived,
				"archived_at": archivedAt,
				"updated_at":  archivedAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(plan).Error; err != nil {
			return err
		}
		return insertChildren(tx, plan)
	})
}

// Save 整体替换计划的任务与目标列表。expectedRevision 与库中不一致时说明发生了并发写入
func (r *PlanRepository) Save(ctx context.Context, plan *model.Plan, expectedRevision int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Plan{}).
			Where("id = ? AND revision = ?", plan.ID, expectedRevision).
			Updates(map[string]interface{}{
				"subjects":           plan.Subjects,
				"horizon_end":        plan.HorizonEnd,
				"focus_topics":       plan.FocusTopics,
				"weak_topics":        plan.WeakTopics,
				"completion_rate":    plan.CompletionRate,
				"average_difficulty": plan.AverageDifficulty,
				"revision":           plan.Revision,
				"updated_at":         plan.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrConflictRetry
		}

		if err := tx.Where("plan_id = ?", plan.ID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", plan.ID).Delete(&model.Goal{}).Error; err != nil {
			return err
		}
		return insertChildren(tx, plan)
	})
}

func insertChildren(tx *gorm.DB, plan *model.Plan) error {
	for i := range plan.DailyTasks {
		plan.DailyTasks[i].PlanID = plan.ID
		plan.DailyTasks[i].Seq = i
	}
	for i := range plan.WeeklyGoals {
		plan.WeeklyGoals[i].PlanID = plan.ID
		plan.WeeklyGoals[i].Seq = i
	}
	if len(plan.DailyTasks) > 0 {
		if err := tx.CreateInBatches(plan.DailyTasks, 200).Error; err != nil {
			return err
		}
	}
	if len(plan.WeeklyGoals) > 0 {
		if err := tx.CreateInBatches(plan.WeeklyGoals, 200).Error; err != nil {
			return err
		}
	}
	return nil
}
