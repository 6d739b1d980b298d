package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"time"
)

// maxProgressDays 进度查询允许的最长区间
const maxProgressDays = 1100

type ProgressService struct {
	LedgerRepo *repository.LedgerRepository
	Settings   *SettingsStore
}

func NewProgressService(ledgerRepo *repository.LedgerRepository, settings *SettingsStore) *ProgressService {
	return &ProgressService{LedgerRepo: ledgerRepo, Settings: settings}
}

// GetProgress 汇总 [start, end) 内的学习进度
func (s *ProgressService) GetProgress(ctx context.Context, studentID string, period model.DateRange) (*model.ProgressReport, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	if !period.End.After(period.Start) {
		return nil, fmt.Errorf("%w: period end must be after start", util.ErrInvalidInput)
	}
	entries, err := s.LedgerRepo.FindByStudent(ctx, studentID, &period)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return SummarizeProgress(studentID, entries, period, s.Settings.Location(), s.Settings.Get().TrendDelta)
}

type subjectAcc struct {
	sum   float64
	n     int
	tests int
	split *halfSplit
}

// SummarizeProgress 纯函数：得分、学习时长、进步率与学习规律性。
// consistency = 1 - 区间内每日学习分钟数的变异系数，截断到 [0,1]
func SummarizeProgress(studentID string, entries []model.LedgerEntry, period model.DateRange, loc *time.Location, trendDelta float64) (*model.ProgressReport, error) {
	if !period.End.After(period.Start) {
		return nil, fmt.Errorf("%w: period end must be after start", util.ErrInvalidInput)
	}
	if loc == nil {
		loc = time.UTC
	}
	mid := period.Midpoint()
	overall := newHalfSplit(mid)
	subjects := make(map[string]*subjectAcc)
	daily := make(map[string]int)

	report := &model.ProgressReport{StudentID: studentID, Period: period}
	for i := range entries {
		e := &entries[i]
		if !period.Contains(e.Timestamp) {
			continue
		}
		report.AttemptsCount++
		report.StudyTimeMinutes += e.DurationMinutes
		daily[e.Timestamp.In(loc).Format(util.DateFormat)] += e.DurationMinutes

		acc, ok := subjects[e.Subject]
		if !ok {
			acc = &subjectAcc{split: newHalfSplit(mid)}
			subjects[e.Subject] = acc
		}
		if e.Kind == model.LedgerTest {
			report.TestsCompleted++
			acc.tests++
		}
		if e.Scored() {
			acc.sum += *e.Score
			acc.n++
			acc.split.add(e.Timestamp, *e.Score)
			overall.add(e.Timestamp, *e.Score)
		}
	}
	if report.AttemptsCount == 0 {
		return nil, fmt.Errorf("%w: no ledger entries in period", util.ErrInsufficientData)
	}

	report.ScoredCount = overall.firstN + overall.secondN
	if n := report.ScoredCount; n > 0 {
		report.OverallScore = round((overall.firstSum+overall.secondSum)/float64(n), 2)
	}
	if d, ok := overall.delta(); ok {
		report.ImprovementRate = round(clamp(d, -100, 100), 2)
	}

	for name, acc := range subjects {
		ss := model.SubjectScore{
			Subject:        name,
			TestsCompleted: acc.tests,
			Trend:          acc.split.trend(trendDelta),
		}
		if acc.n > 0 {
			ss.Score = round(acc.sum/float64(acc.n), 2)
		}
		report.SubjectScores = append(report.SubjectScores, ss)
	}
	sort.Slice(report.SubjectScores, func(i, j int) bool {
		return report.SubjectScores[i].Subject < report.SubjectScores[j].Subject
	})

	c, err := dailyConsistency(daily, period, loc)
	if err != nil {
		return nil, err
	}
	report.Consistency = c
	return report, nil
}

func dailyConsistency(daily map[string]int, period model.DateRange, loc *time.Location) (float64, error) {
	var minutes []float64
	for d := startOfDay(period.Start, loc); d.Before(period.End); d = d.AddDate(0, 0, 1) {
		if len(minutes) >= maxProgressDays {
			return 0, fmt.Errorf("%w: period longer than %d days", util.ErrInvalidInput, maxProgressDays)
		}
		minutes = append(minutes, float64(daily[d.Format(util.DateFormat)]))
	}
	if len(minutes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, m := range minutes {
		sum += m
	}
	mean := sum / float64(len(minutes))
	if mean == 0 {
		return 0, nil
	}
	var sq float64
	for _, m := range minutes {
		sq += (m - mean) * (m - mean)
	}
	cv := math.Sqrt(sq/float64(len(minutes))) / mean
	return round(clamp(1-cv, 0, 1), 4), nil
}
