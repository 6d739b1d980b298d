package service

import (
	"fmt"
	"sort"
	"strings"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"time"
)

// RegenerateOptions 重新生成计划的选项
type RegenerateOptions struct {
	// KeepCompletedTasks 为 nil 时视为 true
	KeepCompletedTasks *bool `json:"keepCompletedTasks"`
	AdjustDifficulty   bool  `json:"adjustDifficulty"`
}

func (o RegenerateOptions) keepCompleted() bool {
	return o.KeepCompletedTasks == nil || *o.KeepCompletedTasks
}

// TopicRef 追加到计划中的主题
type TopicRef struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

// canTransition 任务状态只能前进：pending → in_progress → completed，允许跳过 in_progress
func canTransition(from, to model.TaskStatus) bool {
	switch from {
	case model.TaskPending:
		return to == model.TaskProgress || to == model.TaskCompleted
	case model.TaskProgress:
		return to == model.TaskCompleted
	}
	return false
}

// planClock 计划在本地时区下的日历换算
type planClock struct {
	loc   *time.Location
	start time.Time
	today int
	days  int
}

func newPlanClock(plan *model.Plan, now time.Time) planClock {
	loc := plan.Location()
	start := startOfDay(plan.StartDate, loc)
	return planClock{
		loc:   loc,
		start: start,
		today: daysBetween(start, startOfDay(now, loc)),
		days:  daysBetween(start, plan.HorizonEnd.In(loc)),
	}
}

func (c planClock) dayIndex(t time.Time) int {
	return daysBetween(c.start, t.In(c.loc))
}

func (c planClock) weekStarted(g model.Goal, now time.Time) bool {
	return !c.start.AddDate(0, 0, (g.Week-1)*7).After(now)
}

// effectiveLevel 当前未完成任务所用的难度，没有时取计划初始难度
func effectiveLevel(plan *model.Plan, c planClock) int {
	for _, t := range plan.DailyTasks {
		if t.Status != model.TaskCompleted && c.dayIndex(t.DueDate) >= c.today && t.Difficulty > 0 {
			return t.Difficulty
		}
	}
	return plan.CurrentLevel
}

// recentCompletion 最近若干天到期任务的完成率；窗口内没有任务时退回到全部已到期任务
func recentCompletion(plan *model.Plan, c planClock, cfg config.EngineConfig) *float64 {
	rate := func(from int) *float64 {
		total, done := 0, 0
		for _, t := range plan.DailyTasks {
			d := c.dayIndex(t.DueDate)
			if d >= from && d < c.today {
				total++
				if t.Status == model.TaskCompleted {
					done++
				}
			}
		}
		if total == 0 {
			return nil
		}
		r := float64(done) / float64(total) * 100
		return &r
	}
	if r := rate(c.today - cfg.RecentCompletionDays); r != nil {
		return r
	}
	return rate(-1 << 30)
}

// targetLevel 在计划初始难度基础上上下浮动一级
func targetLevel(base int, completion, score *float64, cfg config.EngineConfig) int {
	lvl := base
	switch {
	case completion != nil && score != nil && *completion > cfg.DifficultyUpCompletion && *score > cfg.DifficultyUpScore:
		lvl = base + 1
	case completion != nil && *completion < cfg.DifficultyDownCompletion,
		score != nil && *score < cfg.DifficultyDownScore:
		lvl = base - 1
	}
	if lvl < cfg.MinLevel {
		lvl = cfg.MinLevel
	}
	if lvl > cfg.MaxLevel {
		lvl = cfg.MaxLevel
	}
	return lvl
}

// regeneratePlan 纯函数：保留已完成任务，从今天的下一个空闲时段重排其余任务。
// 返回新的计划副本以及被丢弃的已完成任务（keepCompleted=false 时用于归档）
func regeneratePlan(plan *model.Plan, heatmap *model.Heatmap, recentScore *float64, opts RegenerateOptions, cfg config.EngineConfig, now time.Time) (*model.Plan, []model.Task, error) {
	if plan.ExamDate != nil && !plan.ExamDate.After(now) {
		return nil, nil, fmt.Errorf("%w: exam date has passed", util.ErrInvalidInput)
	}
	c := newPlanClock(plan, now)
	days := c.days
	if c.today >= days {
		days = c.today + horizonDays(startOfDay(now, c.loc), c.loc, plan.ExamDate, cfg)
	}

	keep := opts.keepCompleted()
	var retained, dropped []model.Task
	oldByID := make(map[string]model.Task, len(plan.DailyTasks))
	for _, t := range plan.DailyTasks {
		oldByID[t.ID] = t
		switch {
		case !keep:
			if t.Status == model.TaskCompleted {
				dropped = append(dropped, t)
			}
		case t.Status == model.TaskCompleted:
			retained = append(retained, t)
		case c.dayIndex(t.DueDate) < c.today:
			// 过期未完成的任务保留，仍可补做
			retained = append(retained, t)
		}
	}

	level := effectiveLevel(plan, c)
	if opts.AdjustDifficulty {
		level = targetLevel(plan.CurrentLevel, recentCompletion(plan, c, cfg), recentScore, cfg)
	}

	weak := mergeWeak(WeakTopics(heatmap, cfg.WeakTopicThreshold), plan.FocusTopics, plan.Subjects, cfg)
	sched := newScheduler(scheduleInput{
		PlanID:      plan.ID,
		Subjects:    plan.Subjects,
		Level:       level,
		WeeklyHours: plan.WeeklyHours,
		Loc:         c.loc,
		Start:       c.start,
		ExamDate:    plan.ExamDate,
		Days:        days,
		Weak:        weak,
		Rotation:    rotationTopics(heatmap, plan.Subjects, weak, plan.FocusTopics, level),
		Existing:    retained,
		Now:         now,
		Settings:    cfg,
	}, c.today)
	fresh := sched.fill(c.today, days)
	for i := range fresh {
		if old, ok := oldByID[fresh[i].ID]; ok {
			fresh[i].CreatedAt = old.CreatedAt
		}
	}

	tasks := make([]model.Task, 0, len(retained)+len(fresh))
	tasks = append(tasks, retained...)
	tasks = append(tasks, fresh...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })

	raiseWeakPriorities(tasks, weak)

	started := func(g model.Goal) bool { return c.weekStarted(g, now) }
	goals := sched.buildGoals(tasks)
	built := make(map[string]bool, len(goals))
	prevByID := make(map[string]model.Goal, len(plan.WeeklyGoals))
	for _, g := range plan.WeeklyGoals {
		prevByID[g.ID] = g
	}
	for i, g := range goals {
		built[g.ID] = true
		if p, ok := prevByID[g.ID]; ok {
			goals[i].CreatedAt = p.CreatedAt
			if started(p) {
				goals[i].Title = p.Title
				goals[i].Description = p.Description
				goals[i].TargetDate = p.TargetDate
			}
		}
	}
	for _, p := range plan.WeeklyGoals {
		if !built[p.ID] && started(p) {
			goals = append(goals, p)
		}
	}
	sortGoals(goals, plan.Subjects)

	np := *plan
	np.DailyTasks = tasks
	np.WeeklyGoals = goals
	np.WeakTopics = weak
	np.HorizonEnd = c.start.AddDate(0, 0, days)
	np.Revision = plan.Revision + 1
	np.UpdatedAt = now
	refreshMetrics(&np, plan.WeeklyGoals, started)
	return &np, dropped, nil
}

// addTopicsToPlan 纯函数：把主题放到最近一个还有预算的日子，必要时延长没有考试日期的计划
func addTopicsToPlan(plan *model.Plan, topics []TopicRef, priority model.TaskPriority, cfg config.EngineConfig, now time.Time) (*model.Plan, []model.Task, error) {
	if len(topics) == 0 {
		return nil, nil, fmt.Errorf("%w: topics must not be empty", util.ErrInvalidInput)
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown priority %q", util.ErrInvalidInput, priority)
	}
	if plan.ExamDate != nil && !plan.ExamDate.After(now) {
		return nil, nil, fmt.Errorf("%w: exam date has passed", util.ErrInvalidInput)
	}

	refs := make([]TopicRef, 0, len(topics))
	for _, t := range topics {
		t.Topic = strings.TrimSpace(t.Topic)
		t.Subject = strings.TrimSpace(t.Subject)
		if t.Topic == "" {
			return nil, nil, fmt.Errorf("%w: topic name must not be empty", util.ErrInvalidInput)
		}
		if t.Subject == "" && len(plan.Subjects) == 1 {
			t.Subject = plan.Subjects[0]
		}
		if !plan.HasSubject(t.Subject) {
			return nil, nil, fmt.Errorf("%w: subject %q is not part of the plan", util.ErrInvalidInput, t.Subject)
		}
		refs = append(refs, t)
	}

	c := newPlanClock(plan, now)
	days := c.days
	weakByKey := make(map[string]model.WeakTopic, len(plan.WeakTopics))
	for _, w := range plan.WeakTopics {
		weakByKey[w.Key()] = w
	}
	level := effectiveLevel(plan, c)
	sched := newScheduler(scheduleInput{
		PlanID:      plan.ID,
		Subjects:    plan.Subjects,
		Level:       level,
		WeeklyHours: plan.WeeklyHours,
		Loc:         c.loc,
		Start:       c.start,
		ExamDate:    plan.ExamDate,
		Days:        days,
		Weak:        plan.WeakTopics,
		Existing:    plan.DailyTasks,
		Now:         now,
		Settings:    cfg,
	}, c.today)

	from := c.today
	if from < 0 {
		from = 0
	}
	var added []model.Task
	for _, ref := range refs {
		d := sched.firstFreeDay(from)
		if d >= days {
			if plan.ExamDate != nil {
				return nil, nil, fmt.Errorf("%w: no free time left before the exam date", util.ErrInvalidInput)
			}
			if d >= cfg.MaxHorizonDays {
				return nil, nil, fmt.Errorf("%w: plan horizon cannot exceed %d days", util.ErrInvalidInput, cfg.MaxHorizonDays)
			}
			days = d + 1
			sched.in.Days = days
		}
		p := priority
		if w, ok := weakByKey[model.TopicKey(ref.Subject, ref.Topic)]; ok {
			p = p.AtLeast(weakPriority(w))
		}
		added = append(added, sched.place(d, ref.Subject, ref.Topic, p))
	}

	tasks := make([]model.Task, 0, len(plan.DailyTasks)+len(added))
	tasks = append(tasks, plan.DailyTasks...)
	tasks = append(tasks, added...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })

	focus := make([]model.FocusTopic, len(plan.FocusTopics))
	copy(focus, plan.FocusTopics)
	for _, ref := range refs {
		found := false
		for i := range focus {
			if focus[i].Subject == ref.Subject && focus[i].Topic == ref.Topic {
				focus[i].Priority = focus[i].Priority.AtLeast(priority)
				found = true
			}
		}
		if !found {
			focus = append(focus, model.FocusTopic{Subject: ref.Subject, Topic: ref.Topic, Priority: priority})
		}
	}

	goals := make([]model.Goal, len(plan.WeeklyGoals))
	copy(goals, plan.WeeklyGoals)
	have := make(map[string]bool, len(goals))
	for _, g := range goals {
		have[g.ID] = true
	}
	for _, g := range sched.buildGoals(tasks) {
		if !have[g.ID] {
			goals = append(goals, g)
		}
	}
	sortGoals(goals, plan.Subjects)

	np := *plan
	np.DailyTasks = tasks
	np.WeeklyGoals = goals
	np.FocusTopics = focus
	np.WeakTopics = mergeWeak(plan.WeakTopics, focus, plan.Subjects, cfg)
	raiseWeakPriorities(np.DailyTasks, np.WeakTopics)
	np.HorizonEnd = c.start.AddDate(0, 0, days)
	np.Revision = plan.Revision + 1
	np.UpdatedAt = now
	refreshMetrics(&np, plan.WeeklyGoals, nil)
	return &np, added, nil
}

// raiseWeakPriorities 主题属于薄弱集合的未完成任务，优先级不低于该主题的严重程度
func raiseWeakPriorities(tasks []model.Task, weak []model.WeakTopic) {
	if len(weak) == 0 {
		return
	}
	byKey := make(map[string]model.WeakTopic, len(weak))
	for _, w := range weak {
		byKey[w.Key()] = w
	}
	for i := range tasks {
		if tasks[i].Status == model.TaskCompleted {
			continue
		}
		if w, ok := byKey[model.TopicKey(tasks[i].Subject, tasks[i].Topic)]; ok {
			tasks[i].Priority = tasks[i].Priority.AtLeast(weakPriority(w))
		}
	}
}

// refreshMetrics 重新计算完成率、平均难度与目标进度（按优先级加权）。
// floor 为 nil 时所有旧目标的进度都不回退，否则只对 floor 返回 true 的目标生效
func refreshMetrics(plan *model.Plan, previous []model.Goal, floor func(model.Goal) bool) {
	type weight struct{ total, done float64 }
	byGoal := make(map[string]*weight)
	done, diffSum := 0, 0
	for _, t := range plan.DailyTasks {
		w, ok := byGoal[t.GoalID]
		if !ok {
			w = &weight{}
			byGoal[t.GoalID] = w
		}
		pw := float64(t.Priority.Rank())
		w.total += pw
		if t.Status == model.TaskCompleted {
			done++
			w.done += pw
		}
		diffSum += t.Difficulty
	}
	if n := len(plan.DailyTasks); n > 0 {
		plan.CompletionRate = round(float64(done)/float64(n)*100, 2)
		plan.AverageDifficulty = round(float64(diffSum)/float64(n), 2)
	} else {
		plan.CompletionRate = 0
	}

	prev := make(map[string]model.Goal, len(previous))
	for _, g := range previous {
		prev[g.ID] = g
	}
	for i := range plan.WeeklyGoals {
		g := &plan.WeeklyGoals[i]
		progress := 0.0
		if w, ok := byGoal[g.ID]; ok && w.total > 0 {
			progress = round(w.done/w.total*100, 2)
		}
		completed := false
		if p, ok := prev[g.ID]; ok && (floor == nil || floor(p)) {
			if p.Progress > progress {
				progress = p.Progress
			}
			completed = p.Completed
		}
		g.Progress = progress
		g.Completed = completed || progress >= 100
	}
}
