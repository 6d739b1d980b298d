package service

import (
	"context"
	"fmt"
	"sort"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"time"
)

type HeatmapService struct {
	LedgerRepo *repository.LedgerRepository
	Settings   *SettingsStore
	Now        func() time.Time
}

func NewHeatmapService(ledgerRepo *repository.LedgerRepository, settings *SettingsStore) *HeatmapService {
	return &HeatmapService{LedgerRepo: ledgerRepo, Settings: settings, Now: time.Now}
}

// GetHeatmap 计算学生的主题热力图，window 为空时使用全部历史
func (s *HeatmapService) GetHeatmap(ctx context.Context, studentID string, window *model.DateRange) (*model.Heatmap, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	if window != nil && !window.End.After(window.Start) {
		return nil, fmt.Errorf("%w: window end must be after start", util.ErrInvalidInput)
	}
	entries, err := s.LedgerRepo.FindByStudent(ctx, studentID, window)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return BuildHeatmap(studentID, entries, window, s.Settings.Get(), s.Now())
}

type topicAcc struct {
	subject, topic string
	attempts       int
	scored         int
	scoreSum       float64
	last           time.Time
	split          *halfSplit
}

// BuildHeatmap 纯函数：由学习记录聚合出每个科目/主题的错误率。
// 错误率 = 1 - 平均得分/100，只统计有分数的记录；无分数记录只计入尝试次数
func BuildHeatmap(studentID string, entries []model.LedgerEntry, window *model.DateRange, cfg config.EngineConfig, now time.Time) (*model.Heatmap, error) {
	var w model.DateRange
	if window != nil {
		w = *window
	} else {
		w = entriesWindow(entries)
	}
	mid := w.Midpoint()

	topics := make(map[string]*topicAcc)
	total := 0
	for i := range entries {
		e := &entries[i]
		if window != nil && !w.Contains(e.Timestamp) {
			continue
		}
		key := model.TopicKey(e.Subject, e.Topic)
		acc, ok := topics[key]
		if !ok {
			acc = &topicAcc{subject: e.Subject, topic: e.Topic, split: newHalfSplit(mid)}
			topics[key] = acc
		}
		acc.attempts++
		total++
		if e.Timestamp.After(acc.last) {
			acc.last = e.Timestamp
		}
		if e.Scored() {
			acc.scored++
			acc.scoreSum += *e.Score
			acc.split.add(e.Timestamp, *e.Score)
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no ledger entries for student %s", util.ErrInsufficientData, studentID)
	}

	bySubject := make(map[string]*model.SubjectHeatmap)
	weighted := make(map[string]float64)
	scoredBySubject := make(map[string]int)
	for _, acc := range topics {
		stat := model.TopicStat{
			Subject:       acc.subject,
			Topic:         acc.topic,
			AttemptsCount: acc.attempts,
			ScoredCount:   acc.scored,
			LastAttempt:   acc.last,
			Trend:         acc.split.trend(cfg.TrendDelta),
		}
		if acc.scored > 0 {
			stat.ErrorRate = round(clamp(1-acc.scoreSum/float64(acc.scored)/100, 0, 1), 4)
		}
		stat.Severity = classifySeverity(stat, cfg)

		sh, ok := bySubject[acc.subject]
		if !ok {
			sh = &model.SubjectHeatmap{Subject: acc.subject}
			bySubject[acc.subject] = sh
		}
		sh.Topics = append(sh.Topics, stat)
		sh.AttemptsCount += acc.attempts
		weighted[acc.subject] += stat.ErrorRate * float64(acc.scored)
		scoredBySubject[acc.subject] += acc.scored
	}

	h := &model.Heatmap{
		StudentID:     studentID,
		Window:        w,
		TotalAttempts: total,
		GeneratedAt:   now,
	}
	for subject, sh := range bySubject {
		if n := scoredBySubject[subject]; n > 0 {
			sh.ErrorRate = round(weighted[subject]/float64(n), 4)
		}
		sort.Slice(sh.Topics, func(i, j int) bool {
			if sh.Topics[i].ErrorRate != sh.Topics[j].ErrorRate {
				return sh.Topics[i].ErrorRate > sh.Topics[j].ErrorRate
			}
			return sh.Topics[i].Topic < sh.Topics[j].Topic
		})
		h.Subjects = append(h.Subjects, *sh)
	}
	sort.Slice(h.Subjects, func(i, j int) bool { return h.Subjects[i].Subject < h.Subjects[j].Subject })
	return h, nil
}

func classifySeverity(stat model.TopicStat, cfg config.EngineConfig) model.Severity {
	if stat.ScoredCount == 0 {
		return model.SeverityLow
	}
	switch {
	case stat.ErrorRate >= cfg.HighSeverityThreshold:
		return model.SeverityHigh
	case stat.ErrorRate > cfg.WeakTopicThreshold:
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// WeakTopics 错误率高于阈值的主题，按错误率降序
func WeakTopics(h *model.Heatmap, threshold float64) []model.WeakTopic {
	if h == nil {
		return nil
	}
	var weak []model.WeakTopic
	for _, sh := range h.Subjects {
		for _, t := range sh.Topics {
			if t.ScoredCount > 0 && t.ErrorRate > threshold {
				weak = append(weak, model.WeakTopic{
					Subject:   t.Subject,
					Topic:     t.Topic,
					ErrorRate: t.ErrorRate,
					Severity:  t.Severity,
				})
			}
		}
	}
	sortWeak(weak)
	return weak
}

func sortWeak(weak []model.WeakTopic) {
	sort.SliceStable(weak, func(i, j int) bool {
		if weak[i].ErrorRate != weak[j].ErrorRate {
			return weak[i].ErrorRate > weak[j].ErrorRate
		}
		if weak[i].Subject != weak[j].Subject {
			return weak[i].Subject < weak[j].Subject
		}
		return weak[i].Topic < weak[j].Topic
	})
}
