package model

import "time"

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// DateRange 左闭右开区间 [Start, End)
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains 时间点是否落在区间内
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Midpoint 区间中点，用于前后两半的趋势比较
func (r DateRange) Midpoint() time.Time {
	return r.Start.Add(r.End.Sub(r.Start) / 2)
}

// TopicStat 单个主题的错误率统计，始终可由学习记录重新计算
type TopicStat struct {
	Subject       string    `json:"subject"`
	Topic         string    `json:"topic"`
	ErrorRate     float64   `json:"errorRate"` // 0-1
	AttemptsCount int       `json:"attemptsCount"`
	ScoredCount   int       `json:"scoredCount"`
	LastAttempt   time.Time `json:"lastAttempt"`
	Trend         Trend     `json:"trend"`
	Severity      Severity  `json:"severity"`
}

// SubjectHeatmap 单个科目下按错误率降序排列的主题
type SubjectHeatmap struct {
	Subject       string      `json:"subject"`
	ErrorRate     float64     `json:"errorRate"`
	AttemptsCount int         `json:"attemptsCount"`
	Topics        []TopicStat `json:"topics"`
}

// Heatmap 学生全部科目的主题热力图
// swagger:model Heatmap
type Heatmap struct {
	StudentID     string           `json:"studentId"`
	Window        DateRange        `json:"window"`
	Subjects      []SubjectHeatmap `json:"subjects"`
	TotalAttempts int              `json:"totalAttempts"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

// TopicCount 热力图中的主题总数
func (h *Heatmap) TopicCount() int {
	n := 0
	for _, s := range h.Subjects {
		n += len(s.Topics)
	}
	return n
}

// SubjectScore 科目得分
type SubjectScore struct {
	Subject        string  `json:"subject"`
	Score          float64 `json:"score"`
	TestsCompleted int     `json:"testsCompleted"`
	Trend          Trend   `json:"trend"`
}

// ProgressReport 指定时间段的学习进度汇总
// swagger:model ProgressReport
type ProgressReport struct {
	StudentID        string         `json:"studentId"`
	Period           DateRange      `json:"period"`
	OverallScore     float64        `json:"overallScore"`
	SubjectScores    []SubjectScore `json:"subjectScores"`
	TestsCompleted   int            `json:"testsCompleted"`
	StudyTimeMinutes int            `json:"studyTimeMinutes"`
	ImprovementRate  float64        `json:"improvementRate"`
	Consistency      float64        `json:"consistency"`
	AttemptsCount    int            `json:"attemptsCount"`
	ScoredCount      int            `json:"scoredCount"`
}

type FactorName string

const (
	FactorImprovement  FactorName = "improvement_rate"
	FactorConsistency  FactorName = "consistency"
	FactorWeakTopics   FactorName = "weak_topic_density"
	FactorTimePressure FactorName = "time_to_exam"
)

// PredictionFactor 预测分数的组成项，Impact 为对分数的加减（分）
type PredictionFactor struct {
	Factor      FactorName `json:"factor"`
	Impact      float64    `json:"impact"`
	Description string     `json:"description"`
}

// Prediction 考试分数预测
// swagger:model Prediction
type Prediction struct {
	StudentID       string             `json:"studentId"`
	ExamType        string             `json:"examType"`
	PredictedScore  float64            `json:"predictedScore"`
	Confidence      float64            `json:"confidence"`
	Factors         []PredictionFactor `json:"factors"`
	Recommendations []string           `json:"recommendations"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}
