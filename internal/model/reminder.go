package model

import (
	"time"

	"gorm.io/datatypes"
)

type ReminderReason string

const (
	ReminderNone        ReminderReason = ""
	ReminderDueTasks    ReminderReason = "due_tasks"
	ReminderInactive    ReminderReason = "inactive"
	ReminderAlreadySent ReminderReason = "already_sent"
	ReminderDisabled    ReminderReason = "disabled"
	ReminderNoPlan      ReminderReason = "no_active_plan"
	ReminderNotYet      ReminderReason = "not_due"
)

// ReminderLog 每个学生每个自然日（按其时区）最多一条，唯一索引即去重键
type ReminderLog struct {
	ID        uint                        `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID string                      `gorm:"size:64;not null;uniqueIndex:idx_reminder_student_day,priority:1" json:"studentId"`
	LocalDate string                      `gorm:"size:10;not null;uniqueIndex:idx_reminder_student_day,priority:2" json:"localDate"`
	Reason    ReminderReason              `gorm:"size:32" json:"reason"`
	TaskIDs   datatypes.JSONSlice[string] `json:"taskIds"`
	SentAt    time.Time                   `json:"sentAt"`
}

func (ReminderLog) TableName() string {
	return "reminder_logs"
}

// ReminderPreferences 由用户子系统维护，本服务只读取
type ReminderPreferences struct {
	Enabled   bool   `json:"enabled"`
	TimeOfDay string `json:"timeOfDay"` // HH:MM
	Timezone  string `json:"timezone"`
}

// ReminderTask 提醒中引用的任务摘要
type ReminderTask struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Subject string    `json:"subject"`
	DueDate time.Time `json:"dueDate"`
	Overdue bool      `json:"overdue"`
}

// ReminderDecision 一次评估的结果，Send 为 true 时已记录并投递事件
// swagger:model ReminderDecision
type ReminderDecision struct {
	StudentID    string         `json:"studentId"`
	Send         bool           `json:"send"`
	Reason       ReminderReason `json:"reason"`
	Tasks        []ReminderTask `json:"tasks,omitempty"`
	DedupeKey    string         `json:"dedupeKey,omitempty"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	LastActivity *time.Time     `json:"lastActivity,omitempty"`
	EvaluatedAt  time.Time      `json:"evaluatedAt"`
}
