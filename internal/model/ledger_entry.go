package model

import "time"

type LedgerKind string

const (
	LedgerTest     LedgerKind = "test"
	LedgerPractice LedgerKind = "practice"
	LedgerQuery    LedgerKind = "query"
)

func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerTest, LedgerPractice, LedgerQuery:
		return true
	}
	return false
}

// LedgerEntry 一次已完成的学习交互（测试、练习或 AI 问答），写入后不可修改
// swagger:model LedgerEntry
type LedgerEntry struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID       string     `gorm:"size:64;not null;index:idx_ledger_student_time,priority:1" json:"studentId"`
	Subject         string     `gorm:"size:100;not null" json:"subject"`
	Topic           string     `gorm:"size:150" json:"topic"`
	Kind            LedgerKind `gorm:"size:20;not null" json:"kind"`
	Score           *float64   `json:"score,omitempty"` // 0-100，可为空
	DurationMinutes int        `gorm:"default:0" json:"durationMinutes"`
	Timestamp       time.Time  `gorm:"not null;index:idx_ledger_student_time,priority:2" json:"timestamp"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Scored 是否带有可计分的成绩
func (e *LedgerEntry) Scored() bool {
	return e.Score != nil
}
