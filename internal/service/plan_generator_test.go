package service

import (
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicPlanInput(subjects ...string) planInput {
	return planInput{
		PlanID:      "plan-1",
		StudentID:   "s1",
		ExamType:    "final",
		Subjects:    subjects,
		Level:       5,
		WeeklyHours: 10,
		Loc:         time.UTC,
	}
}

func TestBuildPlanRespectsExamDateAndBudget(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	exam := base.AddDate(0, 0, 20)
	input := basicPlanInput("Math", "Physics")
	input.ExamDate = &exam

	plan, err := buildPlan(input, cfg, base)
	require.NoError(t, err)
	require.NotEmpty(t, plan.DailyTasks)

	for _, task := range plan.DailyTasks {
		assert.False(t, task.DueDate.Before(base), "task %s due before creation", task.ID)
		assert.False(t, task.DueDate.After(exam), "task %s due after exam", task.ID)
		assert.Equal(t, model.TaskPending, task.Status)
		assert.Equal(t, input.Level, task.Difficulty)
	}
	for _, goal := range plan.WeeklyGoals {
		assert.False(t, goal.TargetDate.After(exam))
	}

	budget := input.WeeklyHours * 60 / 7 * (1 + cfg.DailyBudgetTolerance)
	for day, minutes := range dailyMinutes(plan.DailyTasks, time.UTC) {
		assert.LessOrEqual(t, float64(minutes), budget, "day %s over budget", day)
	}
	last := plan.DailyTasks[len(plan.DailyTasks)-1]
	assert.True(t, last.DueDate.Equal(exam))
	assert.Equal(t, model.PlanActive, plan.Status)
	assert.Zero(t, plan.CompletionRate)
	assert.InDelta(t, 5, plan.AverageDifficulty, 1e-9)
}

func TestBuildPlanSchedulesWeakTopicEarly(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	h, err := BuildHeatmap("s1", []model.LedgerEntry{
		scored("Math", "Calculus", 40, base.AddDate(0, 0, -3)),
		scored("Math", "Calculus", 40, base.AddDate(0, 0, -2)),
		scored("Math", "Algebra", 95, base.AddDate(0, 0, -2)),
	}, nil, cfg, base)
	require.NoError(t, err)

	input := basicPlanInput("Math")
	input.Heatmap = h
	plan, err := buildPlan(input, cfg, base)
	require.NoError(t, err)

	weekEnd := base.AddDate(0, 0, 7)
	found := false
	for _, task := range plan.DailyTasks {
		if task.Topic != "Calculus" {
			continue
		}
		assert.NotEqual(t, model.PriorityLow, task.Priority)
		if task.Priority == model.PriorityHigh && task.DueDate.Before(weekEnd) {
			found = true
		}
	}
	assert.True(t, found, "expected a high priority Calculus task in the first week")
	assert.True(t, plan.HorizonEnd.Equal(startOfDay(base, time.UTC).AddDate(0, 0, cfg.DefaultHorizonDays)))

	require.Len(t, plan.WeakTopics, 1)
	assert.Equal(t, "Calculus", plan.WeakTopics[0].Topic)
	assert.Equal(t, "Reduce error rate in Calculus below 40%", plan.WeeklyGoals[0].Title)
}

func TestBuildPlanCoversEveryWeakTopicInFirstWeek(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	h, err := BuildHeatmap("s1", []model.LedgerEntry{
		scored("Physics", "Optics", 55, base.AddDate(0, 0, -1)),
		scored("History", "Rome", 10, base.AddDate(0, 0, -1)),
	}, nil, cfg, base)
	require.NoError(t, err)

	input := basicPlanInput("Math", "Physics")
	input.WeeklyHours = 3.5
	input.Heatmap = h
	input.Focus = []model.FocusTopic{
		{Subject: "Math", Topic: "Calculus", Priority: model.PriorityHigh},
		{Subject: "Math", Topic: "Algebra", Priority: model.PriorityMedium},
		{Subject: "Math", Topic: "Sets", Priority: model.PriorityLow},
	}
	plan, err := buildPlan(input, cfg, base)
	require.NoError(t, err)

	require.Len(t, plan.WeakTopics, 3, "History is not in the plan and Sets is low priority")
	weekEnd := base.AddDate(0, 0, 7)
	for _, w := range plan.WeakTopics {
		covered := false
		for _, task := range plan.DailyTasks {
			if task.Subject == w.Subject && task.Topic == w.Topic && task.DueDate.Before(weekEnd) {
				covered = true
				assert.True(t, task.Priority.Rank() >= model.PriorityMedium.Rank())
			}
		}
		assert.True(t, covered, "weak topic %s not scheduled in the first week", w.Topic)
	}
}

func TestBuildPlanRejectsPastExam(t *testing.T) {
	input := basicPlanInput("Math")
	input.ExamDate = timePtr(base.Add(-time.Minute))
	_, err := buildPlan(input, config.DefaultEngineConfig(), base)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	a, err := buildPlan(basicPlanInput("Math", "Physics"), cfg, base)
	require.NoError(t, err)
	b, err := buildPlan(basicPlanInput("Math", "Physics"), cfg, base)
	require.NoError(t, err)
	assert.Equal(t, taskIDs(a.DailyTasks), taskIDs(b.DailyTasks))
}

func TestTypeCycleFollowsLevel(t *testing.T) {
	assert.Equal(t, model.TaskLesson, typeCycle(2)[0])
	assert.Equal(t, model.TaskLesson, typeCycle(5)[0])
	assert.NotContains(t, typeCycle(9), model.TaskLesson)
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestBuildPlanForTwoSubjectsBeforeExam(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	h, err := BuildHeatmap("s1", []model.LedgerEntry{
		scored("Math", "Calculus", 40, base.AddDate(0, 0, -1)),
	}, nil, cfg, base)
	require.NoError(t, err)
	require.Len(t, WeakTopics(h, cfg.WeakTopicThreshold), 1)

	exam := base.AddDate(0, 0, 60)
	input := basicPlanInput("Math", "Physics")
	input.ExamDate = &exam
	input.Level = 2
	input.WeeklyHours = 10
	input.Heatmap = h
	plan, err := buildPlan(input, cfg, base)
	require.NoError(t, err)

	weekEnd := startOfDay(base, time.UTC).AddDate(0, 0, 7)
	found := false
	subjects := map[string]bool{}
	for _, task := range plan.DailyTasks {
		assert.False(t, task.DueDate.After(exam))
		assert.Equal(t, 2, task.Difficulty)
		subjects[task.Subject] = true
		if task.Topic == "Calculus" && task.DueDate.Before(weekEnd) &&
			task.Priority.Rank() >= model.PriorityMedium.Rank() {
			found = true
		}
	}
	assert.True(t, found, "expected a Calculus task at medium priority or above in the first week")
	assert.True(t, subjects["Math"] && subjects["Physics"])
	assertWeakTopicsPrioritized(t, plan)
}
