package service

import (
	"context"
	"errors"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reminderStream = "reminder:events"

type reminderFixture struct {
	*fixture
	rdb      *redis.Client
	reminder *ReminderService
	repo     *repository.ReminderRepository
}

func newReminderFixture(t *testing.T, now time.Time) *reminderFixture {
	t.Helper()
	f := newFixture(t, now)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.DefaultReminderConfig()
	repo := repository.NewReminderRepository(f.db)
	svc := NewReminderService(f.planRepo, f.ledgers, repo, NewRedisStreamPublisher(rdb, reminderStream), cfg)
	svc.Now = func() time.Time { return f.now }
	return &reminderFixture{fixture: f, rdb: rdb, reminder: svc, repo: repo}
}

// seedPlan 写入一个只有一个任务的计划
func (f *reminderFixture) seedPlan(t *testing.T, studentID string, createdAt, due time.Time) {
	t.Helper()
	start := startOfDay(createdAt, time.UTC)
	plan := &model.Plan{
		ID:           model.GenerateUUID(),
		StudentID:    studentID,
		Subjects:     []string{"Math"},
		Status:       model.PlanActive,
		CurrentLevel: 3,
		WeeklyHours:  5,
		Timezone:     "UTC",
		StartDate:    start,
		HorizonEnd:   start.AddDate(0, 0, 30),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		DailyTasks: []model.Task{{
			ID:                   model.GenerateUUID(),
			Title:                "Practice: Calculus",
			Subject:              "Math",
			Topic:                "Calculus",
			Type:                 model.TaskPractice,
			EstimatedTimeMinutes: 30,
			Priority:             model.PriorityHigh,
			Status:               model.TaskPending,
			DueDate:              due,
			Difficulty:           3,
			CreatedAt:            createdAt,
		}},
	}
	require.NoError(t, f.planRepo.ReplaceActive(context.Background(), plan, createdAt))
}

func (f *reminderFixture) streamLen(t *testing.T) int64 {
	t.Helper()
	n, err := f.rdb.XLen(context.Background(), reminderStream).Result()
	require.NoError(t, err)
	return n
}

func TestReminderForOverdueTaskIsSentOncePerDay(t *testing.T) {
	morning := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, morning)
	yesterdayEnd := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	f.seedPlan(t, "s1", morning.AddDate(0, 0, -1).Add(-2*time.Hour), yesterdayEnd)
	ctx := context.Background()

	d, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.True(t, d.Send)
	assert.Equal(t, model.ReminderDueTasks, d.Reason)
	require.Len(t, d.Tasks, 1)
	assert.True(t, d.Tasks[0].Overdue)
	assert.Equal(t, "s1:2026-03-03", d.DedupeKey)
	assert.EqualValues(t, 1, f.streamLen(t))

	f.now = morning.Add(6 * time.Hour)
	again, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.False(t, again.Send)
	assert.Equal(t, model.ReminderAlreadySent, again.Reason)
	assert.EqualValues(t, 1, f.streamLen(t))

	f.now = morning.AddDate(0, 0, 1)
	next, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.True(t, next.Send)
	assert.EqualValues(t, 2, f.streamLen(t))
}

func TestReminderAlreadySentAfterStudentResumes(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	f.seedPlan(t, "s1", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))
	ctx := context.Background()

	d, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	require.True(t, d.Send)

	// 收到提醒后学生开始学习，当天仍视为已提醒
	f.record(t, "s1", "Math", "Calculus", 70, now.Add(30*time.Minute))
	f.now = now.Add(time.Hour)
	again, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.False(t, again.Send)
	assert.Equal(t, model.ReminderAlreadySent, again.Reason)
	assert.Equal(t, "s1:2026-03-03", again.DedupeKey)
	assert.EqualValues(t, 1, f.streamLen(t))
}

func TestReminderWaitsForPreferredTime(t *testing.T) {
	early := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, early)
	f.seedPlan(t, "s1", early.Add(-2*time.Hour), time.Date(2026, 3, 3, 23, 59, 59, 0, time.UTC))

	d, err := f.reminder.Evaluate(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.False(t, d.Send)
	assert.Equal(t, model.ReminderNotYet, d.Reason)

	override := &model.ReminderPreferences{Enabled: true, TimeOfDay: "07:30", Timezone: "UTC"}
	d, err = f.reminder.Evaluate(context.Background(), "s1", override)
	require.NoError(t, err)
	assert.True(t, d.Send)
	require.NotNil(t, d.ScheduledFor)
	assert.Equal(t, 7, d.ScheduledFor.Hour())
}

func TestReminderSkipsStudentActiveToday(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	f.seedPlan(t, "s1", now.Add(-3*time.Hour), time.Date(2026, 3, 3, 23, 59, 59, 0, time.UTC))
	f.record(t, "s1", "Math", "Calculus", 80, now.Add(-time.Hour))

	d, err := f.reminder.Evaluate(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.False(t, d.Send)
	assert.Equal(t, model.ReminderNotYet, d.Reason)
	require.NotNil(t, d.LastActivity)
}

func TestReminderForInactiveStudent(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	// 任务在后天到期，但已两天没有学习记录
	f.seedPlan(t, "s1", now.AddDate(0, 0, -3), time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC))
	f.record(t, "s1", "Math", "Calculus", 80, now.AddDate(0, 0, -2))

	d, err := f.reminder.Evaluate(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.True(t, d.Send)
	assert.Equal(t, model.ReminderInactive, d.Reason)
	require.Len(t, d.Tasks, 1)
	assert.False(t, d.Tasks[0].Overdue)
}

func TestReminderWithoutPlanOrDisabled(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	ctx := context.Background()

	d, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderNoPlan, d.Reason)

	f.seedPlan(t, "s1", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))
	d, err = f.reminder.Evaluate(ctx, "s1", &model.ReminderPreferences{Enabled: false})
	require.NoError(t, err)
	assert.False(t, d.Send)
	assert.Equal(t, model.ReminderDisabled, d.Reason)

	_, err = f.reminder.Evaluate(ctx, "s1", &model.ReminderPreferences{Enabled: true, TimeOfDay: "9am"})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
	assert.EqualValues(t, 0, f.streamLen(t))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *model.ReminderDecision) error {
	return errors.New("notification channel down")
}

func TestReminderPublishFailureLeavesNoRecord(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	f.seedPlan(t, "s1", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))
	f.reminder.Publisher = failingPublisher{}
	ctx := context.Background()

	_, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.Error(t, err)
	exists, err := f.repo.Exists(ctx, "s1", "2026-03-03")
	require.NoError(t, err)
	assert.False(t, exists)

	f.reminder.Publisher = NewRedisStreamPublisher(f.rdb, reminderStream)
	d, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.NoError(t, err)
	assert.True(t, d.Send)
}

func TestReminderEvaluationHonoursCancellation(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	f.seedPlan(t, "s1", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.reminder.Evaluate(ctx, "s1", nil)
	require.Error(t, err)

	exists, err := f.repo.Exists(context.Background(), "s1", "2026-03-03")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.EqualValues(t, 0, f.streamLen(t))
}

func TestReminderSweep(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := newReminderFixture(t, now)
	f.seedPlan(t, "s1", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))
	f.seedPlan(t, "s2", now.AddDate(0, 0, -2), now.Add(-24*time.Hour))
	f.seedPlan(t, "s3", now.Add(-time.Hour), now.AddDate(0, 0, 3))

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.EqualValues(t, 2, f.streamLen(t))
}
