package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/logger"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type cachedPrediction struct {
	prediction *model.Prediction
	expires    time.Time
}

// PredictionService 结合进度与热力图估计考试分数，短时间内的重复请求合并计算
type PredictionService struct {
	Heatmaps *HeatmapService
	Progress *ProgressService
	PlanRepo *repository.PlanRepository
	Settings *SettingsStore
	Now      func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	cache    map[string]cachedPrediction
	versions map[string]uint64
}

func NewPredictionService(heatmaps *HeatmapService, progress *ProgressService, planRepo *repository.PlanRepository, settings *SettingsStore) *PredictionService {
	return &PredictionService{
		Heatmaps: heatmaps,
		Progress: progress,
		PlanRepo: planRepo,
		Settings: settings,
		Now:      time.Now,
		cache:    make(map[string]cachedPrediction),
		versions: make(map[string]uint64),
	}
}

// PredictionInput 预测所需的全部输入，便于脱离存储单独计算
type PredictionInput struct {
	StudentID     string
	ExamType      string
	Report        *model.ProgressReport
	Heatmap       *model.Heatmap
	DaysRemaining *int
	SubjectCount  int
	Now           time.Time
}

// GetPrediction 预测学生在 examType 考试中的得分
func (s *PredictionService) GetPrediction(ctx context.Context, studentID, examType string) (*model.Prediction, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	key := studentID + "|" + examType
	now := s.Now()

	s.mu.Lock()
	if c, ok := s.cache[key]; ok && now.Before(c.expires) {
		s.mu.Unlock()
		return c.prediction, nil
	}
	version := s.versions[studentID]
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		p, err := s.compute(ctx, studentID, examType, now)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.versions[studentID] == version {
			s.cache[key] = cachedPrediction{prediction: p, expires: now.Add(s.Settings.Get().PredictionDebounce)}
		}
		s.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Prediction), nil
}

// Invalidate 丢弃学生的缓存预测，新学习记录写入后调用
func (s *PredictionService) Invalidate(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[studentID]++
	prefix := studentID + "|"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
}

// OnLedgerAppended 实现 LedgerObserver
func (s *PredictionService) OnLedgerAppended(_ context.Context, entry *model.LedgerEntry) {
	s.Invalidate(entry.StudentID)
}

func (s *PredictionService) compute(ctx context.Context, studentID, examType string, now time.Time) (*model.Prediction, error) {
	cfg := s.Settings.Get()
	window := model.DateRange{Start: now.AddDate(0, 0, -cfg.PredictionWindowDays), End: now.Add(time.Nanosecond)}

	var (
		report  *model.ProgressReport
		heatmap *model.Heatmap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.Progress.GetProgress(gctx, studentID, window)
		report = r
		return err
	})
	g.Go(func() error {
		h, err := s.Heatmaps.GetHeatmap(gctx, studentID, &window)
		if errors.Is(err, util.ErrInsufficientData) {
			return nil
		}
		heatmap = h
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := PredictionInput{
		StudentID:    studentID,
		ExamType:     examType,
		Report:       report,
		Heatmap:      heatmap,
		SubjectCount: len(report.SubjectScores),
		Now:          now,
	}
	plan, err := s.PlanRepo.FindActiveByStudent(ctx, studentID)
	switch {
	case err == nil:
		if plan.ExamDate != nil {
			days := int(math.Ceil(plan.ExamDate.Sub(now).Hours() / 24))
			if days < 0 {
				days = 0
			}
			in.DaysRemaining = &days
		}
		if n := len(plan.Subjects); n > 0 {
			in.SubjectCount = n
		}
		if in.ExamType == "" {
			in.ExamType = plan.ExamType
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		logger.Log.Warn("加载计划失败，预测忽略考试日期",
			zap.String("studentID", studentID),
			zap.Error(err))
	}
	return ComputePrediction(in, cfg), nil
}

// ComputePrediction 纯函数：预测分 = 当前总分 + 各因子影响之和，截断到 [0,100]。
// 每个因子先归一到 [-1,1]，再乘以权重与 FactorScale
func ComputePrediction(in PredictionInput, cfg config.EngineConfig) *model.Prediction {
	r := in.Report
	factors := []model.PredictionFactor{
		improvementFactor(r.ImprovementRate, cfg),
		consistencyFactor(r.Consistency, cfg),
		weakDensityFactor(in.Heatmap, cfg),
		timePressureFactor(in.DaysRemaining, in.SubjectCount, cfg),
	}
	score := r.OverallScore
	for _, f := range factors {
		score += f.Impact
	}

	attempts := float64(r.AttemptsCount)
	confidence := 0.95 * (1 - math.Exp(-attempts/cfg.ConfidenceScale))

	return &model.Prediction{
		StudentID:       in.StudentID,
		ExamType:        in.ExamType,
		PredictedScore:  round(clamp(score, 0, 100), 2),
		Confidence:      round(math.Min(confidence, 0.95), 4),
		Factors:         factors,
		Recommendations: recommend(factors, in.Heatmap, cfg),
		GeneratedAt:     in.Now,
	}
}

const (
	weightImprovement  = 0.3
	weightConsistency  = 0.2
	weightWeakDensity  = 0.3
	weightTimePressure = 0.2
)

func impact(weight, term float64, cfg config.EngineConfig) float64 {
	return round(weight*clamp(term, -1, 1)*cfg.FactorScale, 2)
}

func improvementFactor(rate float64, cfg config.EngineConfig) model.PredictionFactor {
	desc := fmt.Sprintf("scores changed by %.1f points between the first and second half of the window", rate)
	return model.PredictionFactor{
		Factor:      model.FactorImprovement,
		Impact:      impact(weightImprovement, rate/25, cfg),
		Description: desc,
	}
}

func consistencyFactor(c float64, cfg config.EngineConfig) model.PredictionFactor {
	return model.PredictionFactor{
		Factor:      model.FactorConsistency,
		Impact:      impact(weightConsistency, 2*c-1, cfg),
		Description: fmt.Sprintf("study consistency is %.0f%%", c*100),
	}
}

func weakDensityFactor(h *model.Heatmap, cfg config.EngineConfig) model.PredictionFactor {
	f := model.PredictionFactor{Factor: model.FactorWeakTopics, Description: "no topic data in the window"}
	if h == nil || h.TopicCount() == 0 {
		return f
	}
	total := h.TopicCount()
	weak := len(WeakTopics(h, cfg.WeakTopicThreshold))
	f.Impact = impact(weightWeakDensity, 2*(1-float64(weak)/float64(total))-1, cfg)
	f.Description = fmt.Sprintf("%d of %d topics are weak", weak, total)
	return f
}

func timePressureFactor(days *int, subjects int, cfg config.EngineConfig) model.PredictionFactor {
	f := model.PredictionFactor{Factor: model.FactorTimePressure, Description: "no exam date set"}
	if days == nil {
		return f
	}
	if subjects < 1 {
		subjects = 1
	}
	recommended := cfg.RecommendedDaysPerSubject * subjects
	f.Description = fmt.Sprintf("%d days remaining, %d recommended", *days, recommended)
	if *days < recommended {
		f.Impact = impact(weightTimePressure, -(1 - float64(*days)/float64(recommended)), cfg)
	}
	return f
}

// recommend 按影响从负到正给出建议，最拖分的因子排在最前
func recommend(factors []model.PredictionFactor, h *model.Heatmap, cfg config.EngineConfig) []string {
	sorted := make([]model.PredictionFactor, len(factors))
	copy(sorted, factors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Impact < sorted[j].Impact })

	var recs []string
	for _, f := range sorted {
		if f.Impact >= 0 {
			continue
		}
		switch f.Factor {
		case model.FactorWeakTopics:
			weak := WeakTopics(h, cfg.WeakTopicThreshold)
			names := make([]string, 0, 3)
			for i := 0; i < len(weak) && i < 3; i++ {
				names = append(names, weak[i].Subject+"/"+weak[i].Topic)
			}
			recs = append(recs, "Drill your weakest topics: "+strings.Join(names, ", "))
		case model.FactorImprovement:
			recs = append(recs, "Recent scores are dropping; revisit the material from your latest tests")
		case model.FactorConsistency:
			recs = append(recs, "Study a little every day instead of in irregular bursts")
		case model.FactorTimePressure:
			recs = append(recs, "Time before the exam is short; focus on high-priority tasks first")
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Keep following your plan to maintain current progress")
	}
	return recs
}
