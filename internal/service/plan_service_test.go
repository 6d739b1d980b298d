package service

import (
	"context"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateRequest() GeneratePlanRequest {
	return GeneratePlanRequest{
		StudentID:    "s1",
		ExamType:     "final",
		Subjects:     []string{"Math", "Physics"},
		CurrentLevel: 4,
		WeeklyHours:  10,
	}
}

func TestGenerateArchivesPreviousPlan(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()

	first, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)
	f.now = base.Add(time.Hour)
	second, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	active, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Len(t, active.DailyTasks, len(second.DailyTasks))
	assert.Len(t, active.WeeklyGoals, len(second.WeeklyGoals))
	assert.Equal(t, []string{"Math", "Physics"}, []string(active.Subjects))

	old, err := f.plans.GetPlanByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanArchived, old.Status)
	assert.NotNil(t, old.ArchivedAt)

	ids, err := f.planRepo.ListActiveStudentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t, base)
	cases := map[string]func(r *GeneratePlanRequest){
		"no subjects":       func(r *GeneratePlanRequest) { r.Subjects = []string{" "} },
		"no weekly hours":   func(r *GeneratePlanRequest) { r.WeeklyHours = 0 },
		"level too high":    func(r *GeneratePlanRequest) { r.CurrentLevel = 11 },
		"level too low":     func(r *GeneratePlanRequest) { r.CurrentLevel = 0 },
		"exam in the past":  func(r *GeneratePlanRequest) { r.ExamDate = timePtr(base.Add(-time.Hour)) },
		"unknown timezone":  func(r *GeneratePlanRequest) { r.Timezone = "Mars/Olympus" },
		"missing student":   func(r *GeneratePlanRequest) { r.StudentID = "" },
		"foreign focus":     func(r *GeneratePlanRequest) { r.FocusTopics = []model.FocusTopic{{Subject: "Art", Topic: "Color"}} },
		"bad focus priority": func(r *GeneratePlanRequest) {
			r.FocusTopics = []model.FocusTopic{{Subject: "Math", Topic: "Sets", Priority: "urgent"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := generateRequest()
			mutate(&req)
			_, err := f.plans.Generate(context.Background(), req)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}

	_, err := f.plans.GetPlan(context.Background(), "s1")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUpdateTaskStatus(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)

	taskID := plan.DailyTasks[0].ID
	task, err := f.plans.UpdateTaskStatus(ctx, plan.ID, taskID, UpdateTaskRequest{Status: model.TaskProgress, TimeSpentMinutes: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskProgress, task.Status)
	assert.Nil(t, task.CompletedAt)

	task, err = f.plans.UpdateTaskStatus(ctx, plan.ID, taskID, UpdateTaskRequest{Status: model.TaskCompleted, TimeSpentMinutes: intPtr(15)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, 25, task.TimeSpentMinutes)
	require.NotNil(t, task.CompletedAt)

	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, taskID, UpdateTaskRequest{Status: model.TaskPending})
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, "missing", UpdateTaskRequest{Status: model.TaskCompleted})
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = f.plans.UpdateTaskStatus(ctx, "missing", taskID, UpdateTaskRequest{Status: model.TaskCompleted})
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, taskID, UpdateTaskRequest{Status: "done"})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	stored, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, plan.Revision+2, stored.Revision)
	i := stored.FindTask(taskID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, model.TaskCompleted, stored.DailyTasks[i].Status)
	assert.Greater(t, stored.CompletionRate, 0.0)
}

func TestCompletionRateIsMonotonic(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)

	last := 0.0
	goalProgress := map[string]float64{}
	for _, task := range plan.DailyTasks[:8] {
		_, err := f.plans.UpdateTaskStatus(ctx, plan.ID, task.ID, UpdateTaskRequest{Status: model.TaskCompleted})
		require.NoError(t, err)
		current, err := f.plans.GetPlan(ctx, "s1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, current.CompletionRate, last)
		last = current.CompletionRate
		for _, g := range current.WeeklyGoals {
			assert.GreaterOrEqual(t, g.Progress, goalProgress[g.ID])
			goalProgress[g.ID] = g.Progress
		}
	}
	assert.Greater(t, last, 0.0)
}

func TestMutationRejectedWhileLeaseHeld(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)

	f.plans.Lease.Wait = 0
	release, err := f.plans.Locker.Acquire(ctx, leaseKey("s1"), time.Minute, 0)
	require.NoError(t, err)

	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, plan.DailyTasks[0].ID, UpdateTaskRequest{Status: model.TaskCompleted})
	assert.ErrorIs(t, err, util.ErrConflictRetry)
	_, err = f.plans.Regenerate(ctx, plan.ID, RegenerateOptions{})
	assert.ErrorIs(t, err, util.ErrConflictRetry)

	release()
	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, plan.DailyTasks[0].ID, UpdateTaskRequest{Status: model.TaskCompleted})
	assert.NoError(t, err)
}

func TestConcurrentTaskUpdatesAreSerialized(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.plans.UpdateTaskStatus(ctx, plan.ID, plan.DailyTasks[i].ID, UpdateTaskRequest{Status: model.TaskCompleted})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, plan.Revision+n, stored.Revision)
	done := 0
	for _, task := range stored.DailyTasks {
		if task.Status == model.TaskCompleted {
			done++
		}
	}
	assert.Equal(t, n, done)
}

func TestRegenerateThroughService(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)
	completedID := plan.DailyTasks[0].ID
	_, err = f.plans.UpdateTaskStatus(ctx, plan.ID, completedID, UpdateTaskRequest{Status: model.TaskCompleted})
	require.NoError(t, err)

	f.record(t, "s1", "Physics", "Optics", 20, base.Add(-time.Hour))
	f.now = base.AddDate(0, 0, 1)
	out, err := f.plans.Regenerate(ctx, plan.ID, RegenerateOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.FindTask(completedID), 0)
	require.Len(t, out.WeakTopics, 1)
	assert.Equal(t, "Optics", out.WeakTopics[0].Topic)

	again, err := f.plans.Regenerate(ctx, plan.ID, RegenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, taskIDs(out.DailyTasks), taskIDs(again.DailyTasks))

	stored, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, taskIDs(again.DailyTasks), taskIDs(stored.DailyTasks))
}

func TestAddTopicsThroughService(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)

	out, err := f.plans.AddTopics(ctx, plan.ID, AddTopicsRequest{
		Topics:   []TopicRef{{Subject: "Math", Topic: "Limits"}},
		Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Len(t, out.DailyTasks, len(plan.DailyTasks)+1)

	_, err = f.plans.AddTopics(ctx, plan.ID, AddTopicsRequest{Topics: []TopicRef{{Subject: "Art", Topic: "Color"}}})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	f.now = base.Add(time.Hour)
	_, err = f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)
	_, err = f.plans.AddTopics(ctx, plan.ID, AddTopicsRequest{Topics: []TopicRef{{Subject: "Math", Topic: "Sets"}}})
	assert.ErrorIs(t, err, util.ErrInvalidInput, "archived plans are read-only")
}

func TestScoredLedgerEntryAdaptsPlan(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	plan, err := f.plans.Generate(ctx, generateRequest())
	require.NoError(t, err)
	require.Empty(t, plan.WeakTopics)

	_, err = f.ledger.Append(ctx, AppendEntryRequest{StudentID: "s1", Subject: "Math", Topic: "Calculus", Kind: model.LedgerQuery})
	require.NoError(t, err)
	unchanged, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, plan.Revision, unchanged.Revision)

	_, err = f.ledger.Append(ctx, AppendEntryRequest{StudentID: "s1", Subject: "Math", Topic: "Calculus", Kind: model.LedgerTest, Score: floatPtr(25)})
	require.NoError(t, err)
	adapted, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, plan.Revision+1, adapted.Revision)
	require.Len(t, adapted.WeakTopics, 1)
	assert.Equal(t, "Calculus", adapted.WeakTopics[0].Topic)

	found := false
	for _, task := range adapted.DailyTasks {
		if task.Topic == "Calculus" && task.Priority == model.PriorityHigh {
			found = true
		}
	}
	assert.True(t, found)

	// 薄弱集合没有变化时不再重排
	_, err = f.ledger.Append(ctx, AppendEntryRequest{StudentID: "s1", Subject: "Math", Topic: "Calculus", Kind: model.LedgerTest, Score: floatPtr(20)})
	require.NoError(t, err)
	stable, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, adapted.Revision, stable.Revision)
}

func TestPlanningContinuesWhenHeatmapFails(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	f.record(t, "s1", "Math", "Algebra", 20, base.Add(-time.Hour))
	require.NoError(t, f.db.Migrator().DropTable(&model.LedgerEntry{}))

	req := generateRequest()
	req.FocusTopics = []model.FocusTopic{{Subject: "Physics", Topic: "Optics", Priority: model.PriorityHigh}}
	plan, err := f.plans.Generate(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, plan.DailyTasks)
	require.Len(t, plan.WeakTopics, 1, "only focus topics count as weak without a heatmap")
	assert.Equal(t, "Optics", plan.WeakTopics[0].Topic)

	f.now = base.AddDate(0, 0, 1)
	out, err := f.plans.Regenerate(ctx, plan.ID, RegenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, plan.Revision+1, out.Revision)
	require.Len(t, out.WeakTopics, 1)
	assert.Equal(t, "Optics", out.WeakTopics[0].Topic)
}

func TestAddTopicsKeepsWeakTopicTasksPrioritized(t *testing.T) {
	f := newFixture(t, base)
	ctx := context.Background()
	f.record(t, "s1", "Math", "Algebra", 95, base.Add(-time.Hour))
	f.record(t, "s1", "Math", "Calculus", 30, base.Add(-time.Hour))

	req := generateRequest()
	req.Subjects = []string{"Math"}
	plan, err := f.plans.Generate(ctx, req)
	require.NoError(t, err)

	out, err := f.plans.AddTopics(ctx, plan.ID, AddTopicsRequest{
		Topics:   []TopicRef{{Subject: "Math", Topic: "Algebra"}},
		Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	assertWeakTopicsPrioritized(t, out)

	stored, err := f.plans.GetPlan(ctx, "s1")
	require.NoError(t, err)
	for _, task := range stored.DailyTasks {
		if task.Topic == "Algebra" {
			assert.Equal(t, model.PriorityHigh, task.Priority)
		}
	}
}
