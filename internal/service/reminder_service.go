package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/logger"
	"studyplan_backend/pkg/monitoring"
	"studyplan_backend/pkg/tracing"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxReminderTasks 一条提醒中列出的任务数上限
const maxReminderTasks = 5

// ReminderPublisher 把已决定发送的提醒交给通知子系统
type ReminderPublisher interface {
	Publish(ctx context.Context, decision *model.ReminderDecision) error
}

// RedisStreamPublisher 以 Redis Stream 作为通知出口
type RedisStreamPublisher struct {
	Redis  *redis.Client
	Stream string
}

func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{Redis: client, Stream: stream}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, d *model.ReminderDecision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: map[string]interface{}{
			"studentId": d.StudentID,
			"reason":    string(d.Reason),
			"dedupeKey": d.DedupeKey,
			"payload":   string(payload),
		},
	}).Err()
}

// PreferenceProvider 读取学生的提醒偏好
type PreferenceProvider interface {
	Preferences(ctx context.Context, studentID string) (model.ReminderPreferences, error)
}

// StaticPreferences 所有学生共用配置中的默认偏好
type StaticPreferences struct {
	Default model.ReminderPreferences
}

func (p StaticPreferences) Preferences(context.Context, string) (model.ReminderPreferences, error) {
	return p.Default, nil
}

type ReminderService struct {
	PlanRepo     *repository.PlanRepository
	LedgerRepo   *repository.LedgerRepository
	ReminderRepo *repository.ReminderRepository
	Publisher    ReminderPublisher
	Prefs        PreferenceProvider
	Config       config.ReminderConfig
	Now          func() time.Time
}

func NewReminderService(
	planRepo *repository.PlanRepository,
	ledgerRepo *repository.LedgerRepository,
	reminderRepo *repository.ReminderRepository,
	publisher ReminderPublisher,
	cfg config.ReminderConfig,
) *ReminderService {
	return &ReminderService{
		PlanRepo:     planRepo,
		LedgerRepo:   ledgerRepo,
		ReminderRepo: reminderRepo,
		Publisher:    publisher,
		Prefs: StaticPreferences{Default: model.ReminderPreferences{
			Enabled:   cfg.Enabled,
			TimeOfDay: cfg.DefaultTime,
			Timezone:  cfg.DefaultTimezone,
		}},
		Config: cfg,
		Now:    time.Now,
	}
}

// Evaluate 判断此刻是否应提醒学生；决定发送时写入当日记录并投递事件，同一自然日至多一次。
// override 非空时代替偏好提供方的设置
func (s *ReminderService) Evaluate(ctx context.Context, studentID string, override *model.ReminderPreferences) (d *model.ReminderDecision, err error) {
	ctx, span := tracing.StartSpan(ctx, "ReminderService.Evaluate", studentID)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
		if d != nil {
			monitoring.RemindersEvaluated.WithLabelValues(string(d.Reason), strconv.FormatBool(d.Send)).Inc()
		}
	}()

	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	prefs, err := s.preferences(ctx, studentID, override)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	d = &model.ReminderDecision{StudentID: studentID, EvaluatedAt: now}
	if !prefs.Enabled {
		d.Reason = model.ReminderDisabled
		return d, nil
	}

	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", util.ErrInvalidInput, prefs.Timezone)
	}
	clock, err := time.Parse(util.ClockFormat, prefs.TimeOfDay)
	if err != nil {
		return nil, fmt.Errorf("%w: reminder time must be HH:MM", util.ErrInvalidInput)
	}
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	remindAt := time.Date(today.Year(), today.Month(), today.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	localDate := today.Format(util.DateFormat)
	d.DedupeKey = studentID + ":" + localDate

	// 当天已提醒过则直接返回，并发情况由 Record 的唯一约束兜底
	sent, err := s.ReminderRepo.Exists(ctx, studentID, localDate)
	if err != nil {
		return nil, fmt.Errorf("load reminder log: %w", err)
	}
	if sent {
		d.Reason = model.ReminderAlreadySent
		return d, nil
	}

	plan, err := s.PlanRepo.FindActiveByStudent(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d.Reason = model.ReminderNoPlan
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	last, err := s.LedgerRepo.LatestActivity(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load last activity: %w", err)
	}
	d.LastActivity = last

	var due, open []model.Task
	for _, t := range plan.DailyTasks {
		if t.Status == model.TaskCompleted {
			continue
		}
		open = append(open, t)
		if t.DueDate.Before(tomorrow) {
			due = append(due, t)
		}
	}
	activeToday := last != nil && !last.Before(today)
	reference := plan.CreatedAt
	if last != nil {
		reference = *last
	}

	switch {
	case len(due) > 0 && !activeToday && !now.Before(remindAt):
		d.Reason = model.ReminderDueTasks
		d.Tasks = reminderTasks(due, today)
		d.ScheduledFor = &remindAt
	case len(open) > 0 && now.Sub(reference) > s.Config.InactivityThreshold:
		d.Reason = model.ReminderInactive
		if len(due) > 0 {
			d.Tasks = reminderTasks(due, today)
		} else {
			d.Tasks = reminderTasks(open, today)
		}
	default:
		d.Reason = model.ReminderNotYet
		return d, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		ids[i] = t.ID
	}
	entry := &model.ReminderLog{
		StudentID: studentID,
		LocalDate: localDate,
		Reason:    d.Reason,
		TaskIDs:   ids,
		SentAt:    now,
	}
	d.Send = true
	inserted, err := s.ReminderRepo.Record(ctx, entry, func(ctx context.Context) error {
		if s.Publisher == nil {
			return nil
		}
		return s.Publisher.Publish(ctx, d)
	})
	if err != nil {
		d.Send = false
		return nil, fmt.Errorf("record reminder: %w", err)
	}
	if !inserted {
		d.Send = false
		d.Reason = model.ReminderAlreadySent
		d.Tasks = nil
		return d, nil
	}
	logger.Log.Info("已发送学习提醒",
		zap.String("studentID", studentID),
		zap.String("reason", string(d.Reason)),
		zap.Int("tasks", len(d.Tasks)))
	return d, nil
}

func (s *ReminderService) preferences(ctx context.Context, studentID string, override *model.ReminderPreferences) (model.ReminderPreferences, error) {
	var prefs model.ReminderPreferences
	if override != nil {
		prefs = *override
	} else {
		p, err := s.Prefs.Preferences(ctx, studentID)
		if err != nil {
			return prefs, fmt.Errorf("load reminder preferences: %w", err)
		}
		prefs = p
	}
	if prefs.TimeOfDay == "" {
		prefs.TimeOfDay = s.Config.DefaultTime
	}
	if prefs.Timezone == "" {
		prefs.Timezone = s.Config.DefaultTimezone
	}
	return prefs, nil
}

// reminderTasks 按截止时间排序，最多列出 maxReminderTasks 条
func reminderTasks(tasks []model.Task, today time.Time) []model.ReminderTask {
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DueDate.Before(sorted[j].DueDate) })
	if len(sorted) > maxReminderTasks {
		sorted = sorted[:maxReminderTasks]
	}
	out := make([]model.ReminderTask, len(sorted))
	for i, t := range sorted {
		out[i] = model.ReminderTask{
			ID:      t.ID,
			Title:   t.Title,
			Subject: t.Subject,
			DueDate: t.DueDate,
			Overdue: t.DueDate.Before(today),
		}
	}
	return out
}

// Sweep 对所有有生效计划的学生评估一次，单个学生失败只记录日志
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	ids, err := s.PlanRepo.ListActiveStudentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list students: %w", err)
	}
	var sent int64
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Config.SweepConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	timeout := s.Config.EvaluationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	for _, id := range ids {
		id := id
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			d, err := s.Evaluate(ectx, id, nil)
			if err != nil {
				logger.Log.Warn("提醒评估失败", zap.String("studentID", id), zap.Error(err))
				return nil
			}
			if d.Send {
				atomic.AddInt64(&sent, 1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(sent), err
}

// Run 按 SweepInterval 周期扫描，直到 ctx 取消
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Log.Error("提醒扫描失败", zap.Error(err))
				continue
			}
			logger.Log.Debug("提醒扫描完成", zap.Int("sent", n))
		}
	}
}
