package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"time"
)

// planInput 生成计划所需的已校验输入
type planInput struct {
	PlanID      string
	StudentID   string
	ExamType    string
	ExamDate    *time.Time
	Subjects    []string
	Level       int
	WeeklyHours float64
	Loc         *time.Location
	Focus       []model.FocusTopic
	Heatmap     *model.Heatmap
}

// buildPlan 纯函数：由输入与热力图排出完整的计划（任务、周目标与统计）
func buildPlan(input planInput, cfg config.EngineConfig, now time.Time) (*model.Plan, error) {
	start := startOfDay(now, input.Loc)
	if input.ExamDate != nil && !input.ExamDate.After(now) {
		return nil, fmt.Errorf("%w: exam date must be in the future", util.ErrInvalidInput)
	}
	days := horizonDays(start, input.Loc, input.ExamDate, cfg)

	weak := mergeWeak(WeakTopics(input.Heatmap, cfg.WeakTopicThreshold), input.Focus, input.Subjects, cfg)
	sched := newScheduler(scheduleInput{
		PlanID:      input.PlanID,
		Subjects:    input.Subjects,
		Level:       input.Level,
		WeeklyHours: input.WeeklyHours,
		Loc:         input.Loc,
		Start:       start,
		ExamDate:    input.ExamDate,
		Days:        days,
		Weak:        weak,
		Rotation:    rotationTopics(input.Heatmap, input.Subjects, weak, input.Focus, input.Level),
		Now:         now,
		Settings:    cfg,
	}, 0)
	tasks := sched.fill(0, days)

	plan := &model.Plan{
		ID:           input.PlanID,
		StudentID:    input.StudentID,
		ExamType:     input.ExamType,
		ExamDate:     input.ExamDate,
		Subjects:     input.Subjects,
		Status:       model.PlanActive,
		CurrentLevel: input.Level,
		WeeklyHours:  input.WeeklyHours,
		Timezone:     input.Loc.String(),
		StartDate:    start,
		HorizonEnd:   start.AddDate(0, 0, days),
		FocusTopics:  input.Focus,
		WeakTopics:   weak,
		DailyTasks:   tasks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	plan.WeeklyGoals = sched.buildGoals(tasks)
	refreshMetrics(plan, nil, nil)
	if len(tasks) == 0 {
		plan.AverageDifficulty = float64(input.Level)
	}
	return plan, nil
}

// horizonDays 计划覆盖的自然日数：有考试日期时排到考试当天，否则使用默认天数
func horizonDays(start time.Time, loc *time.Location, exam *time.Time, cfg config.EngineConfig) int {
	if exam == nil {
		return cfg.DefaultHorizonDays
	}
	el := exam.In(loc)
	d := daysBetween(start, el)
	if !el.Equal(startOfDay(el, loc)) {
		d++
	}
	if d > cfg.MaxHorizonDays {
		d = cfg.MaxHorizonDays
	}
	if d < 1 {
		d = 1
	}
	return d
}

// mergeWeak 合并热力图薄弱主题与调用方指定的 high/medium 关注主题，只保留计划内科目
func mergeWeak(fromHeatmap []model.WeakTopic, focus []model.FocusTopic, subjects []string, cfg config.EngineConfig) []model.WeakTopic {
	inPlan := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		inPlan[s] = true
	}
	index := make(map[string]int)
	var weak []model.WeakTopic
	for _, w := range fromHeatmap {
		if !inPlan[w.Subject] {
			continue
		}
		index[w.Key()] = len(weak)
		weak = append(weak, w)
	}
	for _, f := range focus {
		if !inPlan[f.Subject] || f.Topic == "" {
			continue
		}
		var w model.WeakTopic
		switch f.Priority {
		case model.PriorityHigh:
			w = model.WeakTopic{Subject: f.Subject, Topic: f.Topic, ErrorRate: cfg.HighSeverityThreshold, Severity: model.SeverityHigh}
		case model.PriorityMedium:
			w = model.WeakTopic{Subject: f.Subject, Topic: f.Topic, ErrorRate: (cfg.WeakTopicThreshold + cfg.HighSeverityThreshold) / 2, Severity: model.SeverityMedium}
		default:
			continue
		}
		if i, ok := index[w.Key()]; ok {
			if w.ErrorRate > weak[i].ErrorRate {
				weak[i].ErrorRate = w.ErrorRate
			}
			if w.Severity == model.SeverityHigh {
				weak[i].Severity = model.SeverityHigh
			}
			continue
		}
		index[w.Key()] = len(weak)
		weak = append(weak, w)
	}
	sortWeak(weak)
	return weak
}

// rotationTopics 每个科目的非薄弱主题轮换顺序，难度高时难题在前
func rotationTopics(h *model.Heatmap, subjects []string, weak []model.WeakTopic, focus []model.FocusTopic, level int) map[string][]string {
	weakKeys := make(map[string]bool, len(weak))
	for _, w := range weak {
		weakKeys[w.Key()] = true
	}
	out := make(map[string][]string, len(subjects))
	seen := make(map[string]bool)
	if h != nil {
		for _, sh := range h.Subjects {
			var stats []model.TopicStat
			for _, t := range sh.Topics {
				if t.Topic == "" || weakKeys[model.TopicKey(t.Subject, t.Topic)] {
					continue
				}
				stats = append(stats, t)
			}
			hardFirst := level > 5
			sort.SliceStable(stats, func(i, j int) bool {
				if stats[i].ErrorRate != stats[j].ErrorRate {
					if hardFirst {
						return stats[i].ErrorRate > stats[j].ErrorRate
					}
					return stats[i].ErrorRate < stats[j].ErrorRate
				}
				return stats[i].Topic < stats[j].Topic
			})
			for _, t := range stats {
				out[sh.Subject] = append(out[sh.Subject], t.Topic)
				seen[model.TopicKey(sh.Subject, t.Topic)] = true
			}
		}
	}
	for _, f := range focus {
		key := model.TopicKey(f.Subject, f.Topic)
		if f.Topic == "" || weakKeys[key] || seen[key] {
			continue
		}
		seen[key] = true
		out[f.Subject] = append(out[f.Subject], f.Topic)
	}
	return out
}

// typeCycle 按难度决定任务类型的循环顺序
func typeCycle(level int) []model.TaskType {
	switch {
	case level <= 3:
		return []model.TaskType{model.TaskLesson, model.TaskPractice, model.TaskLesson, model.TaskPractice, model.TaskTest}
	case level <= 6:
		return []model.TaskType{model.TaskLesson, model.TaskPractice, model.TaskPractice, model.TaskTest}
	}
	return []model.TaskType{model.TaskPractice, model.TaskTest, model.TaskPractice, model.TaskTest}
}

func hintDensity(level int) string {
	switch {
	case level <= 3:
		return "step-by-step hints and worked examples"
	case level <= 6:
		return "hints on request"
	}
	return "no hints, exam conditions"
}

func goalID(planID string, week int, subject string) string {
	return model.DeterministicID(planID, "goal", strconv.Itoa(week), subject)
}

type scheduleInput struct {
	PlanID      string
	Subjects    []string
	Level       int
	WeeklyHours float64
	Loc         *time.Location
	Start       time.Time // 计划首日零点
	ExamDate    *time.Time
	Days        int
	Weak        []model.WeakTopic
	Rotation    map[string][]string
	Existing    []model.Task // 保留的任务，占用当日预算并参与节奏计算
	Now         time.Time
	Settings    config.EngineConfig
}

// scheduler 逐日填充任务：先放到期的薄弱主题，剩余时段按科目加权轮转
type scheduler struct {
	in       scheduleInput
	slot     int
	capacity float64

	used        map[int]int
	ordinals    map[string]int
	occurrences map[string]int
	lastDay     map[string]int
	subjectWeak map[string][]model.WeakTopic
	rotIdx      map[string]int
	weights     map[string]int
	current     map[string]int
}

// newScheduler today 之前仍未完成的任务不计入薄弱主题的节奏
func newScheduler(in scheduleInput, today int) *scheduler {
	cfg := in.Settings
	if in.Loc == nil {
		in.Loc = time.UTC
	}
	budget := in.WeeklyHours * 60 / 7
	slot := cfg.SessionMinutes
	if b := int(budget); b < slot {
		slot = b
	}
	if slot < 1 {
		slot = 1
	}
	capacity := budget * (1 + cfg.DailyBudgetTolerance)
	if capacity < float64(slot) {
		capacity = float64(slot)
	}

	s := &scheduler{
		in:          in,
		slot:        slot,
		capacity:    capacity,
		used:        make(map[int]int),
		ordinals:    make(map[string]int),
		occurrences: make(map[string]int),
		lastDay:     make(map[string]int),
		subjectWeak: make(map[string][]model.WeakTopic),
		rotIdx:      make(map[string]int),
		weights:     make(map[string]int),
		current:     make(map[string]int),
	}
	for _, w := range in.Weak {
		s.subjectWeak[w.Subject] = append(s.subjectWeak[w.Subject], w)
	}
	for _, sub := range in.Subjects {
		share := 0.0
		if len(in.Weak) > 0 {
			share = float64(len(s.subjectWeak[sub])) / float64(len(in.Weak))
		}
		s.weights[sub] = int(math.Round((1 + cfg.WeakSubjectBoost*share) * 100))
	}
	for _, t := range in.Existing {
		day := s.dayIndex(t.DueDate)
		s.used[day] += t.EstimatedTimeMinutes
		s.ordinals[s.idKey(day, t.Subject, t.Topic, t.Type)]++
		key := model.TopicKey(t.Subject, t.Topic)
		s.occurrences[key]++
		if t.Status == model.TaskCompleted || day >= today {
			if last, ok := s.lastDay[key]; !ok || day > last {
				s.lastDay[key] = day
			}
		}
	}
	return s
}

func (s *scheduler) dayIndex(t time.Time) int {
	return daysBetween(s.in.Start, t.In(s.in.Loc))
}

func (s *scheduler) dueDate(day int) time.Time {
	due := s.in.Start.AddDate(0, 0, day+1).Add(-time.Second)
	if s.in.ExamDate != nil && due.After(*s.in.ExamDate) {
		return *s.in.ExamDate
	}
	return due
}

func (s *scheduler) idKey(day int, subject, topic string, tt model.TaskType) string {
	date := s.in.Start.AddDate(0, 0, day).Format(util.DateFormat)
	return strings.Join([]string{date, subject, topic, string(tt)}, "/")
}

func (s *scheduler) freeSlots(day int) int {
	free := int((s.capacity - float64(s.used[day])) / float64(s.slot))
	if free < 0 {
		return 0
	}
	return free
}

// firstFreeDay 从 from 开始第一个还有空闲时段的日子，可能超出当前计划范围
func (s *scheduler) firstFreeDay(from int) int {
	d := from
	for d < s.in.Days && s.freeSlots(d) == 0 {
		d++
	}
	return d
}

// interval 薄弱主题的复习间隔（天），错误率越高越频繁
func (s *scheduler) interval(w model.WeakTopic) int {
	cfg := s.in.Settings
	span := 1 - cfg.WeakTopicThreshold
	n := int(math.Ceil(float64(cfg.MaxWeakIntervalDays)*(1-w.ErrorRate)/span - 1e-9))
	if n < 1 {
		n = 1
	}
	if n > cfg.MaxWeakIntervalDays {
		n = cfg.MaxWeakIntervalDays
	}
	return n
}

// dueWeak 当天到期的薄弱主题，拖得越久越靠前
func (s *scheduler) dueWeak(day int) []model.WeakTopic {
	type candidate struct {
		w       model.WeakTopic
		overdue int
	}
	var cands []candidate
	for _, w := range s.in.Weak {
		last, ok := s.lastDay[w.Key()]
		if !ok {
			cands = append(cands, candidate{w: w, overdue: math.MaxInt32})
			continue
		}
		if gap := day - last; gap >= s.interval(w) {
			cands = append(cands, candidate{w: w, overdue: gap - s.interval(w)})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].overdue > cands[j].overdue })
	out := make([]model.WeakTopic, len(cands))
	for i, c := range cands {
		out[i] = c.w
	}
	return out
}

// pickSubject 平滑加权轮询
func (s *scheduler) pickSubject() string {
	total := 0
	best := ""
	for _, sub := range s.in.Subjects {
		w := s.weights[sub]
		total += w
		s.current[sub] += w
		if best == "" || s.current[sub] > s.current[best] {
			best = sub
		}
	}
	s.current[best] -= total
	return best
}

func weakPriority(w model.WeakTopic) model.TaskPriority {
	if w.Severity == model.SeverityHigh {
		return model.PriorityHigh
	}
	return model.PriorityMedium
}

// nextTopic 科目内主题轮换：薄弱主题在前，其次是其他已知主题，都没有时安排科目复习
func (s *scheduler) nextTopic(subject string) (string, model.TaskPriority) {
	weak := s.subjectWeak[subject]
	rot := s.in.Rotation[subject]
	n := len(weak) + len(rot)
	if n == 0 {
		return "", model.PriorityLow
	}
	i := s.rotIdx[subject] % n
	s.rotIdx[subject]++
	if i < len(weak) {
		return weak[i].Topic, weakPriority(weak[i])
	}
	return rot[i-len(weak)], model.PriorityLow
}

// place 在 day 安排一个任务并占用预算
func (s *scheduler) place(day int, subject, topic string, priority model.TaskPriority) model.Task {
	key := model.TopicKey(subject, topic)
	cycle := typeCycle(s.in.Level)
	tt := cycle[s.occurrences[key]%len(cycle)]
	s.occurrences[key]++
	if last, ok := s.lastDay[key]; !ok || day > last {
		s.lastDay[key] = day
	}

	idKey := s.idKey(day, subject, topic, tt)
	ord := s.ordinals[idKey]
	s.ordinals[idKey]++
	s.used[day] += s.slot

	label := topic
	if label == "" {
		label = subject + " review"
	}
	return model.Task{
		ID:                   model.DeterministicID(s.in.PlanID, "task", idKey, strconv.Itoa(ord)),
		PlanID:               s.in.PlanID,
		GoalID:               goalID(s.in.PlanID, day/7+1, subject),
		Title:                fmt.Sprintf("%s: %s", taskTypeLabel(tt), label),
		Subject:              subject,
		Topic:                topic,
		Type:                 tt,
		EstimatedTimeMinutes: s.slot,
		Priority:             priority,
		Status:               model.TaskPending,
		DueDate:              s.dueDate(day),
		Description:          fmt.Sprintf("%s %s for %d minutes at difficulty %d, %s.", subject, strings.ToLower(taskTypeLabel(tt)), s.slot, s.in.Level, hintDensity(s.in.Level)),
		Difficulty:           s.in.Level,
		CreatedAt:            s.in.Now,
	}
}

func taskTypeLabel(tt model.TaskType) string {
	switch tt {
	case model.TaskLesson:
		return "Lesson"
	case model.TaskTest:
		return "Quiz"
	}
	return "Practice"
}

// fill 为 [from, to) 的每一天排满预算
func (s *scheduler) fill(from, to int) []model.Task {
	var out []model.Task
	for day := from; day < to; day++ {
		free := s.freeSlots(day)
		if free == 0 {
			continue
		}
		for _, w := range s.dueWeak(day) {
			if free == 0 {
				break
			}
			out = append(out, s.place(day, w.Subject, w.Topic, weakPriority(w)))
			free--
		}
		for ; free > 0; free-- {
			sub := s.pickSubject()
			topic, priority := s.nextTopic(sub)
			out = append(out, s.place(day, sub, topic, priority))
		}
	}
	return out
}

// buildGoals 按 (周, 科目) 聚合任务生成周目标，目标日期为该周最后一天（不晚于考试）
func (s *scheduler) buildGoals(tasks []model.Task) []model.Goal {
	type bucket struct {
		week    int
		subject string
		tasks   []model.Task
	}
	buckets := make(map[string]*bucket)
	for _, t := range tasks {
		week := s.dayIndex(t.DueDate)/7 + 1
		id := goalID(s.in.PlanID, week, t.Subject)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{week: week, subject: t.Subject}
			buckets[id] = b
		}
		b.tasks = append(b.tasks, t)
	}

	threshold := s.in.Settings.WeakTopicThreshold
	goals := make([]model.Goal, 0, len(buckets))
	for id, b := range buckets {
		minutes := 0
		topics := make(map[string]bool)
		for _, t := range b.tasks {
			minutes += t.EstimatedTimeMinutes
			topics[t.Topic] = true
		}
		title := fmt.Sprintf("Complete all %s tasks for week %d", b.subject, b.week)
		for _, w := range s.subjectWeak[b.subject] {
			if topics[w.Topic] {
				title = fmt.Sprintf("Reduce error rate in %s below %.0f%%", w.Topic, threshold*100)
				break
			}
		}
		lastDay := b.week*7 - 1
		if lastDay >= s.in.Days {
			lastDay = s.in.Days - 1
		}
		if first := (b.week - 1) * 7; lastDay < first {
			lastDay = first + 6
		}
		goals = append(goals, model.Goal{
			ID:          id,
			PlanID:      s.in.PlanID,
			Week:        b.week,
			Subject:     b.subject,
			Title:       title,
			Description: fmt.Sprintf("%d %s tasks, about %d minutes this week", len(b.tasks), b.subject, minutes),
			TargetDate:  s.dueDate(lastDay),
			CreatedAt:   s.in.Now,
		})
	}
	sortGoals(goals, s.in.Subjects)
	return goals
}

func sortGoals(goals []model.Goal, subjects []string) {
	order := make(map[string]int, len(subjects))
	for i, sub := range subjects {
		order[sub] = i
	}
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].Week != goals[j].Week {
			return goals[i].Week < goals[j].Week
		}
		return order[goals[i].Subject] < order[goals[j].Subject]
	})
}
