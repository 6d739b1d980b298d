package service

import (
	"context"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	entries []*model.LedgerEntry
}

func (o *recordingObserver) OnLedgerAppended(_ context.Context, e *model.LedgerEntry) {
	o.entries = append(o.entries, e)
}

func TestLedgerAppend(t *testing.T) {
	f := newFixture(t, base)
	obs := &recordingObserver{}
	svc := NewLedgerService(f.ledgers, obs)
	svc.Now = func() time.Time { return base }
	ctx := context.Background()

	entry, err := svc.Append(ctx, AppendEntryRequest{
		StudentID:       " s1 ",
		Subject:         "Math",
		Topic:           "Calculus",
		Kind:            model.LedgerPractice,
		Score:           floatPtr(72.5),
		DurationMinutes: 25,
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "s1", entry.StudentID)
	assert.True(t, entry.Timestamp.Equal(base))
	require.Len(t, obs.entries, 1)
	assert.Equal(t, entry.ID, obs.entries[0].ID)

	at := base.Add(-2 * time.Hour)
	_, err = svc.Append(ctx, AppendEntryRequest{StudentID: "s1", Subject: "Math", Kind: model.LedgerQuery, Timestamp: &at})
	require.NoError(t, err)

	entries, err := svc.List(ctx, "s1", nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.Equal(at), "entries are ordered by timestamp")
	assert.Nil(t, entries[0].Score)
}

func TestLedgerAppendValidation(t *testing.T) {
	f := newFixture(t, base)
	obs := &recordingObserver{}
	svc := NewLedgerService(f.ledgers, obs)
	svc.Now = func() time.Time { return base }

	future := base.Add(time.Hour)
	cases := map[string]AppendEntryRequest{
		"missing student":  {Subject: "Math", Kind: model.LedgerTest},
		"missing subject":  {StudentID: "s1", Kind: model.LedgerTest},
		"unknown kind":     {StudentID: "s1", Subject: "Math", Kind: "exam"},
		"score too high":   {StudentID: "s1", Subject: "Math", Kind: model.LedgerTest, Score: floatPtr(101)},
		"negative score":   {StudentID: "s1", Subject: "Math", Kind: model.LedgerTest, Score: floatPtr(-1)},
		"negative minutes": {StudentID: "s1", Subject: "Math", Kind: model.LedgerTest, DurationMinutes: -5},
		"future timestamp": {StudentID: "s1", Subject: "Math", Kind: model.LedgerTest, Timestamp: &future},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), req)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}
	assert.Empty(t, obs.entries)
}
