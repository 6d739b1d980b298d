package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/lease"
	"studyplan_backend/pkg/logger"
	"studyplan_backend/pkg/monitoring"
	"studyplan_backend/pkg/tracing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GeneratePlanRequest 生成计划的请求
type GeneratePlanRequest struct {
	StudentID    string             `json:"studentId"`
	ExamType     string             `json:"examType"`
	ExamDate     *time.Time         `json:"examDate"`
	Subjects     []string           `json:"subjects"`
	CurrentLevel int                `json:"currentLevel"`
	WeeklyHours  float64            `json:"weeklyHours"`
	FocusTopics  []model.FocusTopic `json:"focusTopics"`
	Timezone     string             `json:"timezone"`
}

// UpdateTaskRequest 更新任务状态
type UpdateTaskRequest struct {
	Status           model.TaskStatus `json:"status"`
	TimeSpentMinutes *int             `json:"timeSpentMinutes"`
}

// AddTopicsRequest 向计划追加主题
type AddTopicsRequest struct {
	Topics   []TopicRef         `json:"topics"`
	Priority model.TaskPriority `json:"priority"`
}

// PlanService 计划的生成与调整。所有变更都在学生维度的租约内进行，
// 并通过修订号保证整体替换的原子性
type PlanService struct {
	PlanRepo *repository.PlanRepository
	Heatmaps *HeatmapService
	Progress *ProgressService
	Locker   lease.Locker
	Archive  *ArchiveService
	Settings *SettingsStore
	Lease    config.LeaseConfig
	Now      func() time.Time
}

func NewPlanService(
	planRepo *repository.PlanRepository,
	heatmaps *HeatmapService,
	progress *ProgressService,
	locker lease.Locker,
	archive *ArchiveService,
	settings *SettingsStore,
	leaseCfg config.LeaseConfig,
) *PlanService {
	return &PlanService{
		PlanRepo: planRepo,
		Heatmaps: heatmaps,
		Progress: progress,
		Locker:   locker,
		Archive:  archive,
		Settings: settings,
		Lease:    leaseCfg,
		Now:      time.Now,
	}
}

func leaseKey(studentID string) string {
	return "plan:" + studentID
}

// withLease 在学生的租约内执行 fn，租约被占用时返回 ErrConflictRetry
func (s *PlanService) withLease(ctx context.Context, studentID string, fn func() error) error {
	release, err := s.Locker.Acquire(ctx, leaseKey(studentID), s.Lease.TTL, s.Lease.Wait)
	if errors.Is(err, lease.ErrHeld) {
		monitoring.LeaseConflicts.Inc()
		return fmt.Errorf("%w: another update for student %s is in progress", util.ErrConflictRetry, studentID)
	}
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	defer release()
	return fn()
}

func recordMutation(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, util.ErrConflictRetry):
		result = "conflict"
	case errors.Is(err, util.ErrInvalidInput), errors.Is(err, util.ErrInvalidTransition), errors.Is(err, util.ErrNotFound):
		result = "rejected"
	default:
		result = "error"
	}
	monitoring.PlanMutations.WithLabelValues(op, result).Inc()
}

func (s *PlanService) validateGenerate(req *GeneratePlanRequest, cfg config.EngineConfig) (planInput, error) {
	var input planInput
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.StudentID == "" {
		return input, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	seen := make(map[string]bool)
	var subjects []string
	for _, sub := range req.Subjects {
		sub = strings.TrimSpace(sub)
		if sub == "" || seen[sub] {
			continue
		}
		seen[sub] = true
		subjects = append(subjects, sub)
	}
	if len(subjects) == 0 {
		return input, fmt.Errorf("%w: at least one subject is required", util.ErrInvalidInput)
	}
	if req.WeeklyHours <= 0 {
		return input, fmt.Errorf("%w: weeklyHours must be positive", util.ErrInvalidInput)
	}
	if req.WeeklyHours > 168 {
		return input, fmt.Errorf("%w: weeklyHours cannot exceed 168", util.ErrInvalidInput)
	}
	if req.CurrentLevel < cfg.MinLevel || req.CurrentLevel > cfg.MaxLevel {
		return input, fmt.Errorf("%w: currentLevel must be between %d and %d", util.ErrInvalidInput, cfg.MinLevel, cfg.MaxLevel)
	}
	tz := req.Timezone
	if tz == "" {
		tz = cfg.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return input, fmt.Errorf("%w: unknown timezone %q", util.ErrInvalidInput, tz)
	}

	var focus []model.FocusTopic
	for _, f := range req.FocusTopics {
		f.Subject = strings.TrimSpace(f.Subject)
		f.Topic = strings.TrimSpace(f.Topic)
		if f.Topic == "" {
			return input, fmt.Errorf("%w: focus topic name must not be empty", util.ErrInvalidInput)
		}
		if !seen[f.Subject] {
			return input, fmt.Errorf("%w: focus topic subject %q is not in subjects", util.ErrInvalidInput, f.Subject)
		}
		if f.Priority == "" {
			f.Priority = model.PriorityMedium
		}
		if !f.Priority.Valid() {
			return input, fmt.Errorf("%w: unknown priority %q", util.ErrInvalidInput, f.Priority)
		}
		focus = append(focus, f)
	}

	return planInput{
		StudentID:   req.StudentID,
		ExamType:    strings.TrimSpace(req.ExamType),
		ExamDate:    req.ExamDate,
		Subjects:    subjects,
		Level:       req.CurrentLevel,
		WeeklyHours: req.WeeklyHours,
		Loc:         loc,
		Focus:       focus,
	}, nil
}

// loadHeatmap 全部历史的热力图，没有数据时返回 nil
func (s *PlanService) loadHeatmap(ctx context.Context, studentID string) (*model.Heatmap, error) {
	h, err := s.Heatmaps.GetHeatmap(ctx, studentID, nil)
	if errors.Is(err, util.ErrInsufficientData) {
		return nil, nil
	}
	return h, err
}

// planningHeatmap 排程用的热力图。计算失败时记录日志并返回 nil，
// 此时只有调用方指定的关注主题被视为薄弱，其余主题等权轮换
func (s *PlanService) planningHeatmap(ctx context.Context, studentID string) *model.Heatmap {
	h, err := s.loadHeatmap(ctx, studentID)
	if err != nil {
		monitoring.HeatmapFallbacks.Inc()
		logger.Log.Warn("热力图计算失败，按主题等权排程",
			zap.String("studentID", studentID),
			zap.Error(err))
		return nil
	}
	return h
}

// Generate 为学生生成新计划，已有的生效计划被归档
func (s *PlanService) Generate(ctx context.Context, req GeneratePlanRequest) (plan *model.Plan, err error) {
	ctx, span := tracing.StartSpan(ctx, "PlanService.Generate", req.StudentID)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		recordMutation("generate", err)
	}()

	cfg := s.Settings.Get()
	input, err := s.validateGenerate(&req, cfg)
	if err != nil {
		return nil, err
	}
	if input.ExamDate != nil && !input.ExamDate.After(s.Now()) {
		return nil, fmt.Errorf("%w: exam date must be in the future", util.ErrInvalidInput)
	}

	err = s.withLease(ctx, input.StudentID, func() error {
		input.Heatmap = s.planningHeatmap(ctx, input.StudentID)
		input.PlanID = model.GenerateUUID()

		previous, err := s.PlanRepo.FindActiveByStudent(ctx, input.StudentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load active plan: %w", err)
		}
		if err != nil {
			previous = nil
		}

		now := s.Now()
		start := time.Now()
		plan, err = buildPlan(input, cfg, now)
		monitoring.ObservePlanBuild("generate", start)
		if err != nil {
			return err
		}
		if err := s.PlanRepo.ReplaceActive(ctx, plan, now); err != nil {
			return fmt.Errorf("save plan: %w", err)
		}
		if previous != nil {
			s.archive(ctx, previous, "superseded", now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("学习计划已生成",
		zap.String("studentID", plan.StudentID),
		zap.String("planID", plan.ID),
		zap.Int("tasks", len(plan.DailyTasks)),
		zap.Int("weakTopics", len(plan.WeakTopics)))
	return plan, nil
}

// archive 尽力写入归档快照，失败只记录日志
func (s *PlanService) archive(ctx context.Context, plan *model.Plan, reason string, at time.Time) {
	if s.Archive == nil {
		return
	}
	url, err := s.Archive.ArchivePlan(ctx, plan, reason, at)
	if err != nil {
		logger.Log.Warn("计划归档失败",
			zap.String("planID", plan.ID),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	logger.Log.Debug("计划已归档", zap.String("planID", plan.ID), zap.String("url", url))
}

// GetPlan 学生当前生效的计划
func (s *PlanService) GetPlan(ctx context.Context, studentID string) (*model.Plan, error) {
	plan, err := s.PlanRepo.FindActiveByStudent(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no active plan for student %s", util.ErrNotFound, studentID)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlanByID 按 ID 获取计划（含已归档）
func (s *PlanService) GetPlanByID(ctx context.Context, planID string) (*model.Plan, error) {
	plan, err := s.PlanRepo.FindByID(ctx, planID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: plan %s", util.ErrNotFound, planID)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// mutate 在租约内重新读取计划、应用 fn 并按修订号保存
func (s *PlanService) mutate(ctx context.Context, planID string, fn func(plan *model.Plan, now time.Time) (*model.Plan, error)) (*model.Plan, error) {
	plan, err := s.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	var updated *model.Plan
	err = s.withLease(ctx, plan.StudentID, func() error {
		current, err := s.GetPlanByID(ctx, planID)
		if err != nil {
			return err
		}
		if current.Status != model.PlanActive {
			return fmt.Errorf("%w: plan %s is archived", util.ErrInvalidInput, planID)
		}
		updated, err = fn(current, s.Now())
		if err != nil {
			return err
		}
		return s.PlanRepo.Save(ctx, updated, current.Revision)
	})
	return updated, err
}

// UpdateTaskStatus 推进任务状态并刷新完成率与目标进度
func (s *PlanService) UpdateTaskStatus(ctx context.Context, planID, taskID string, req UpdateTaskRequest) (task *model.Task, err error) {
	ctx, span := tracing.StartSpan(ctx, "PlanService.UpdateTaskStatus", "")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		recordMutation("update_task", err)
	}()

	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, req.Status)
	}
	if req.TimeSpentMinutes != nil && *req.TimeSpentMinutes < 0 {
		return nil, fmt.Errorf("%w: timeSpentMinutes must not be negative", util.ErrInvalidInput)
	}

	updated, err := s.mutate(ctx, planID, func(plan *model.Plan, now time.Time) (*model.Plan, error) {
		i := plan.FindTask(taskID)
		if i < 0 {
			return nil, fmt.Errorf("%w: task %s", util.ErrNotFound, taskID)
		}
		t := &plan.DailyTasks[i]
		if !canTransition(t.Status, req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", util.ErrInvalidTransition, t.Status, req.Status)
		}
		previous := make([]model.Goal, len(plan.WeeklyGoals))
		copy(previous, plan.WeeklyGoals)

		t.Status = req.Status
		if req.TimeSpentMinutes != nil {
			t.TimeSpentMinutes += *req.TimeSpentMinutes
		}
		if req.Status == model.TaskCompleted {
			at := now
			t.CompletedAt = &at
		}
		plan.Revision++
		plan.UpdatedAt = now
		refreshMetrics(plan, previous, nil)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	result := updated.DailyTasks[updated.FindTask(taskID)]
	return &result, nil
}

// recentScore 最近若干天的平均分，没有成绩时返回 nil
func (s *PlanService) recentScore(ctx context.Context, studentID string, cfg config.EngineConfig, now time.Time) (*float64, error) {
	period := model.DateRange{Start: now.AddDate(0, 0, -cfg.RecentScoreDays), End: now.Add(time.Nanosecond)}
	report, err := s.Progress.GetProgress(ctx, studentID, period)
	if errors.Is(err, util.ErrInsufficientData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if report.ScoredCount == 0 {
		return nil, nil
	}
	score := report.OverallScore
	return &score, nil
}

// Regenerate 根据最新的薄弱主题重排未完成任务
func (s *PlanService) Regenerate(ctx context.Context, planID string, opts RegenerateOptions) (plan *model.Plan, err error) {
	ctx, span := tracing.StartSpan(ctx, "PlanService.Regenerate", "")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		recordMutation("regenerate", err)
	}()

	cfg := s.Settings.Get()
	var dropped []model.Task
	plan, err = s.mutate(ctx, planID, func(current *model.Plan, now time.Time) (*model.Plan, error) {
		heatmap := s.planningHeatmap(ctx, current.StudentID)
		var score *float64
		var err error
		if opts.AdjustDifficulty {
			if score, err = s.recentScore(ctx, current.StudentID, cfg, now); err != nil {
				return nil, fmt.Errorf("load recent scores: %w", err)
			}
		}
		start := time.Now()
		np, d, err := regeneratePlan(current, heatmap, score, opts, cfg, now)
		monitoring.ObservePlanBuild("regenerate", start)
		dropped = d
		return np, err
	})
	if err != nil {
		return nil, err
	}

	if len(dropped) > 0 {
		snapshot := *plan
		snapshot.DailyTasks = dropped
		snapshot.WeeklyGoals = nil
		s.archive(ctx, &snapshot, "discarded-completed", plan.UpdatedAt)
	}
	logger.Log.Info("学习计划已重新生成",
		zap.String("studentID", plan.StudentID),
		zap.String("planID", plan.ID),
		zap.Int("revision", plan.Revision),
		zap.Float64("averageDifficulty", plan.AverageDifficulty))
	return plan, nil
}

// AddTopics 把主题追加到最近有空闲预算的日子
func (s *PlanService) AddTopics(ctx context.Context, planID string, req AddTopicsRequest) (plan *model.Plan, err error) {
	ctx, span := tracing.StartSpan(ctx, "PlanService.AddTopics", "")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		recordMutation("add_topics", err)
	}()

	cfg := s.Settings.Get()
	return s.mutate(ctx, planID, func(current *model.Plan, now time.Time) (*model.Plan, error) {
		np, _, err := addTopicsToPlan(current, req.Topics, req.Priority, cfg, now)
		return np, err
	})
}

// OnLedgerAppended 新的计分记录改变了薄弱主题集合时自动重排计划
func (s *PlanService) OnLedgerAppended(ctx context.Context, entry *model.LedgerEntry) {
	cfg := s.Settings.Get()
	if !cfg.AutoAdapt || !entry.Scored() {
		return
	}
	plan, err := s.PlanRepo.FindActiveByStudent(ctx, entry.StudentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.Warn("自动调整读取计划失败", zap.String("studentID", entry.StudentID), zap.Error(err))
		}
		return
	}
	if !plan.HasSubject(entry.Subject) {
		return
	}
	heatmap, err := s.loadHeatmap(ctx, entry.StudentID)
	if err != nil {
		logger.Log.Warn("自动调整计算热力图失败", zap.String("studentID", entry.StudentID), zap.Error(err))
		return
	}
	weak := mergeWeak(WeakTopics(heatmap, cfg.WeakTopicThreshold), plan.FocusTopics, plan.Subjects, cfg)
	if sameWeakSet(weak, plan.WeakTopics) {
		return
	}
	if _, err := s.Regenerate(ctx, plan.ID, RegenerateOptions{}); err != nil {
		logger.Log.Warn("自动调整计划失败",
			zap.String("studentID", entry.StudentID),
			zap.String("planID", plan.ID),
			zap.Error(err))
	}
}

func sameWeakSet(a, b []model.WeakTopic) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]model.Severity, len(a))
	for _, w := range a {
		keys[w.Key()] = w.Severity
	}
	for _, w := range b {
		if sev, ok := keys[w.Key()]; !ok || sev != w.Severity {
			return false
		}
	}
	return true
}
