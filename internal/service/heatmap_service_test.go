package service

import (
	"context"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestBuildHeatmapErrorRates(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	unscored := model.LedgerEntry{StudentID: "s1", Subject: "Math", Topic: "Algebra", Kind: model.LedgerQuery, Timestamp: base}
	entries := []model.LedgerEntry{
		scored("Math", "Calculus", 30, base),
		scored("Math", "Calculus", 50, base.Add(time.Hour)),
		scored("Math", "Algebra", 90, base.Add(2*time.Hour)),
		unscored,
		scored("Physics", "Optics", 55, base.Add(3*time.Hour)),
	}

	h, err := BuildHeatmap("s1", entries, nil, cfg, base)
	require.NoError(t, err)
	require.Len(t, h.Subjects, 2)
	assert.Equal(t, 5, h.TotalAttempts)

	math := h.Subjects[0]
	assert.Equal(t, "Math", math.Subject)
	require.Len(t, math.Topics, 2)
	assert.Equal(t, "Calculus", math.Topics[0].Topic)
	assert.InDelta(t, 0.6, math.Topics[0].ErrorRate, 1e-9)
	assert.Equal(t, model.SeverityHigh, math.Topics[0].Severity)

	algebra := math.Topics[1]
	assert.InDelta(t, 0.1, algebra.ErrorRate, 1e-9)
	assert.Equal(t, 2, algebra.AttemptsCount)
	assert.Equal(t, 1, algebra.ScoredCount)
	assert.Equal(t, model.SeverityLow, algebra.Severity)

	optics := h.Subjects[1].Topics[0]
	assert.InDelta(t, 0.45, optics.ErrorRate, 1e-9)
	assert.Equal(t, model.SeverityMedium, optics.Severity)

	weak := WeakTopics(h, cfg.WeakTopicThreshold)
	require.Len(t, weak, 2)
	assert.Equal(t, "Calculus", weak[0].Topic)
	assert.Equal(t, "Optics", weak[1].Topic)
}

func TestBuildHeatmapUnscoredTopicHasZeroErrorRate(t *testing.T) {
	entries := []model.LedgerEntry{
		{StudentID: "s1", Subject: "History", Topic: "Rome", Kind: model.LedgerQuery, Timestamp: base},
	}
	h, err := BuildHeatmap("s1", entries, nil, config.DefaultEngineConfig(), base)
	require.NoError(t, err)
	topic := h.Subjects[0].Topics[0]
	assert.Zero(t, topic.ErrorRate)
	assert.Equal(t, 1, topic.AttemptsCount)
	assert.Empty(t, WeakTopics(h, 0.4))
}

func TestBuildHeatmapTrend(t *testing.T) {
	window := model.DateRange{Start: base, End: base.AddDate(0, 0, 10)}
	entries := []model.LedgerEntry{
		scored("Math", "Calculus", 40, base.AddDate(0, 0, 1)),
		scored("Math", "Calculus", 80, base.AddDate(0, 0, 8)),
		scored("Math", "Algebra", 80, base.AddDate(0, 0, 1)),
		scored("Math", "Algebra", 60, base.AddDate(0, 0, 8)),
		scored("Math", "Geometry", 70, base.AddDate(0, 0, 1)),
		scored("Math", "Geometry", 72, base.AddDate(0, 0, 8)),
		scored("Math", "Sets", 70, base.AddDate(0, 0, 8)),
		scored("Math", "Outside", 10, base.AddDate(0, 0, 20)),
	}
	h, err := BuildHeatmap("s1", entries, &window, config.DefaultEngineConfig(), base)
	require.NoError(t, err)

	trends := map[string]model.Trend{}
	for _, topic := range h.Subjects[0].Topics {
		trends[topic.Topic] = topic.Trend
	}
	assert.Equal(t, map[string]model.Trend{
		"Calculus": model.TrendImproving,
		"Algebra":  model.TrendDeclining,
		"Geometry": model.TrendStable,
		"Sets":     model.TrendStable,
	}, trends)
	assert.Equal(t, 7, h.TotalAttempts)
}

func TestBuildHeatmapEmpty(t *testing.T) {
	_, err := BuildHeatmap("s1", nil, nil, config.DefaultEngineConfig(), base)
	assert.ErrorIs(t, err, util.ErrInsufficientData)
}

func TestHeatmapServiceReadsLedger(t *testing.T) {
	f := newFixture(t, base)
	f.record(t, "s1", "Math", "Calculus", 35, base.Add(-time.Hour))
	f.record(t, "s2", "Math", "Calculus", 100, base.Add(-time.Hour))

	h, err := f.heatmaps.GetHeatmap(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalAttempts)
	assert.InDelta(t, 0.65, h.Subjects[0].Topics[0].ErrorRate, 1e-9)

	_, err = f.heatmaps.GetHeatmap(context.Background(), "nobody", nil)
	assert.ErrorIs(t, err, util.ErrInsufficientData)
}
