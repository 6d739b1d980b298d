package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivePlanWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	provider := NewStorageProvider(&config.StorageConfig{Type: util.StorageLocal, LocalPath: dir})
	svc := NewArchiveService(provider)

	plan := &model.Plan{ID: "p1", StudentID: "s1", Revision: 3, Subjects: []string{"Math"}}
	url, err := svc.ArchivePlan(context.Background(), plan, "superseded", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "plans/s1/p1-r3-superseded.json")), url)

	data, err := os.ReadFile(filepath.Join(dir, "plans", "s1", "p1-r3-superseded.json"))
	require.NoError(t, err)
	var snap planSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "superseded", snap.Reason)
	assert.True(t, snap.ArchivedAt.Equal(base))
	assert.Equal(t, "p1", snap.Plan.ID)
}

func TestGenerateArchivesSupersededPlanToStorage(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, base)
	f.plans.Archive = NewArchiveService(&LocalStorageProvider{Config: &config.StorageConfig{LocalPath: dir}})

	first, err := f.plans.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	_, err = f.plans.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "plans", "s1", first.ID+"-r*-superseded.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
