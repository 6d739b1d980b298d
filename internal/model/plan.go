package model

import (
	"time"

	"gorm.io/datatypes"
)

type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanArchived PlanStatus = "archived"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskProgress  TaskStatus = "in_progress"
	TaskCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskProgress, TaskCompleted:
		return true
	}
	return false
}

type TaskType string

const (
	TaskLesson   TaskType = "lesson"
	TaskTest     TaskType = "test"
	TaskPractice TaskType = "practice"
)

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank 数值越大优先级越高
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// AtLeast 返回 p 与 min 中较高的优先级
func (p TaskPriority) AtLeast(min TaskPriority) TaskPriority {
	if p.Rank() < min.Rank() {
		return min
	}
	return p
}

// FocusTopic 调用方显式指定（或通过 addTopics 追加）的主题
type FocusTopic struct {
	Subject  string       `json:"subject"`
	Topic    string       `json:"topic"`
	Priority TaskPriority `json:"priority"`
}

// WeakTopic 生成/重新生成时使用的薄弱主题快照
type WeakTopic struct {
	Subject   string   `json:"subject"`
	Topic     string   `json:"topic"`
	ErrorRate float64  `json:"errorRate"`
	Severity  Severity `json:"severity"`
}

// Key 主题的唯一键
func (w WeakTopic) Key() string {
	return TopicKey(w.Subject, w.Topic)
}

func TopicKey(subject, topic string) string {
	return subject + "\x00" + topic
}

// Plan 学生当前的学习计划，任务与目标作为整体在同一租约内替换
// swagger:model Plan
type Plan struct {
	ID                string                          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID         string                          `gorm:"size:64;not null;index" json:"studentId"`
	ExamType          string                          `gorm:"size:100" json:"examType"`
	ExamDate          *time.Time                      `json:"examDate,omitempty"`
	Subjects          datatypes.JSONSlice[string]     `json:"subjects"`
	Status            PlanStatus                      `gorm:"size:20;not null;index;default:'active'" json:"status"`
	CurrentLevel      int                             `gorm:"default:1" json:"currentLevel"`
	WeeklyHours       float64                         `json:"weeklyHours"`
	Timezone          string                          `gorm:"size:64" json:"timezone"`
	StartDate         time.Time                       `json:"startDate"`  // 计划首日零点（本地时区）
	HorizonEnd        time.Time                       `json:"horizonEnd"` // 最后一天结束时刻（不含）
	FocusTopics       datatypes.JSONSlice[FocusTopic] `json:"focusTopics"`
	WeakTopics        datatypes.JSONSlice[WeakTopic]  `json:"weakTopics"`
	DailyTasks        []Task                          `gorm:"foreignKey:PlanID" json:"dailyTasks"`
	WeeklyGoals       []Goal                          `gorm:"foreignKey:PlanID" json:"weeklyGoals"`
	CompletionRate    float64                         `gorm:"default:0" json:"completionRate"`
	AverageDifficulty float64                         `gorm:"default:0" json:"averageDifficulty"`
	Revision          int                             `gorm:"default:0" json:"revision"`
	ArchivedAt        *time.Time                      `json:"archivedAt,omitempty"`
	CreatedAt         time.Time                       `json:"createdAt"`
	UpdatedAt         time.Time                       `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (Plan) TableName() string {
	return "study_plans"
}

// Location 计划所用时区，无效时回退到 UTC
func (p *Plan) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasSubject 科目是否属于该计划
func (p *Plan) HasSubject(subject string) bool {
	for _, s := range p.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// FindTask 按 ID 查找任务下标，不存在返回 -1
func (p *Plan) FindTask(taskID string) int {
	for i := range p.DailyTasks {
		if p.DailyTasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// Task 计划中的单个学习任务
// swagger:model Task
type Task struct {
	ID                   string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlanID               string       `gorm:"type:varchar(36);not null;index" json:"planId"`
	GoalID               string       `gorm:"type:varchar(36);index" json:"goalId"`
	Seq                  int          `gorm:"default:0" json:"seq"`
	Title                string       `gorm:"size:255;not null" json:"title"`
	Subject              string       `gorm:"size:100;not null" json:"subject"`
	Topic                string       `gorm:"size:150" json:"topic"`
	Type                 TaskType     `gorm:"size:20;not null" json:"type"`
	EstimatedTimeMinutes int          `json:"estimatedTimeMinutes"`
	Priority             TaskPriority `gorm:"size:10;not null" json:"priority"`
	Status               TaskStatus   `gorm:"size:20;not null;default:'pending'" json:"status"`
	DueDate              time.Time    `gorm:"index" json:"dueDate"`
	Description          string       `gorm:"type:text" json:"description"`
	Difficulty           int          `json:"difficulty"`
	TimeSpentMinutes     int          `gorm:"default:0" json:"timeSpentMinutes"`
	CompletedAt          *time.Time   `json:"completedAt,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
}

func (Task) TableName() string {
	return "plan_tasks"
}

// Goal 按周、按科目设定的里程碑
// swagger:model Goal
type Goal struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlanID      string    `gorm:"type:varchar(36);not null;index" json:"planId"`
	Seq         int       `gorm:"default:0" json:"seq"`
	Week        int       `json:"week"`
	Subject     string    `gorm:"size:100" json:"subject"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	TargetDate  time.Time `json:"targetDate"`
	Progress    float64   `gorm:"default:0" json:"progress"` // 0-100
	Completed   bool      `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Goal) TableName() string {
	return "plan_goals"
}
