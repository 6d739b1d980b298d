package service

import (
	"context"
	"fmt"
	"strings"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/logger"
	"studyplan_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// maxClockSkew 允许写入方时钟领先服务端的幅度
const maxClockSkew = 5 * time.Minute

// LedgerObserver 学习记录写入成功后的回调
type LedgerObserver interface {
	OnLedgerAppended(ctx context.Context, entry *model.LedgerEntry)
}

// AppendEntryRequest 测试/练习/AI 问答子系统上报的一条学习记录
type AppendEntryRequest struct {
	StudentID       string           `json:"studentId"`
	Subject         string           `json:"subject"`
	Topic           string           `json:"topic"`
	Kind            model.LedgerKind `json:"kind"`
	Score           *float64         `json:"score"`
	DurationMinutes int              `json:"durationMinutes"`
	Timestamp       *time.Time       `json:"timestamp"`
}

type LedgerService struct {
	Repo      *repository.LedgerRepository
	Observers []LedgerObserver
	Now       func() time.Time
}

func NewLedgerService(repo *repository.LedgerRepository, observers ...LedgerObserver) *LedgerService {
	return &LedgerService{Repo: repo, Observers: observers, Now: time.Now}
}

// Append 校验并追加学习记录，随后同步通知观察者
func (s *LedgerService) Append(ctx context.Context, req AppendEntryRequest) (*model.LedgerEntry, error) {
	now := s.Now().UTC()
	entry := &model.LedgerEntry{
		StudentID:       strings.TrimSpace(req.StudentID),
		Subject:         strings.TrimSpace(req.Subject),
		Topic:           strings.TrimSpace(req.Topic),
		Kind:            req.Kind,
		Score:           req.Score,
		DurationMinutes: req.DurationMinutes,
		Timestamp:       now,
		CreatedAt:       now,
	}
	if req.Timestamp != nil {
		entry.Timestamp = req.Timestamp.UTC()
	}

	switch {
	case entry.StudentID == "":
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	case entry.Subject == "":
		return nil, fmt.Errorf("%w: subject is required", util.ErrInvalidInput)
	case !entry.Kind.Valid():
		return nil, fmt.Errorf("%w: unknown kind %q", util.ErrInvalidInput, entry.Kind)
	case entry.Score != nil && (*entry.Score < 0 || *entry.Score > 100):
		return nil, fmt.Errorf("%w: score must be within [0,100]", util.ErrInvalidInput)
	case entry.DurationMinutes < 0:
		return nil, fmt.Errorf("%w: durationMinutes must not be negative", util.ErrInvalidInput)
	case entry.Timestamp.After(now.Add(maxClockSkew)):
		return nil, fmt.Errorf("%w: timestamp is in the future", util.ErrInvalidInput)
	}

	if err := s.Repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	monitoring.LedgerEntries.WithLabelValues(string(entry.Kind)).Inc()
	logger.Log.Debug("学习记录已写入",
		zap.String("studentID", entry.StudentID),
		zap.String("subject", entry.Subject),
		zap.String("topic", entry.Topic),
		zap.String("kind", string(entry.Kind)))

	for _, o := range s.Observers {
		o.OnLedgerAppended(ctx, entry)
	}
	return entry, nil
}

// List 学生在时间范围内的学习记录
func (s *LedgerService) List(ctx context.Context, studentID string, window *model.DateRange) ([]model.LedgerEntry, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", util.ErrInvalidInput)
	}
	if window != nil && !window.End.After(window.Start) {
		return nil, fmt.Errorf("%w: window end must be after start", util.ErrInvalidInput)
	}
	return s.Repo.FindByStudent(ctx, studentID, window)
}
