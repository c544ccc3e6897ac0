package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"facewatch-go/internal/config"
	"facewatch-go/internal/database"
	"facewatch-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_Disabled(t *testing.T) {
	assert.Nil(t, NewService(nil, 0, "", time.Hour))

	var s *Service
	s.Start(context.Background())
}

func TestRunCleanupCycle(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(config.DBConfig{Enabled: true, File: filepath.Join(dir, "cleanup.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	repo := database.NewSQLiteRepository(db)
	ctx := context.Background()

	snapDir := filepath.Join(dir, "snapshots")
	require.NoError(t, os.MkdirAll(filepath.Join(snapDir, "run"), 0755))
	oldFile := filepath.Join(snapDir, "run", "old.jpg")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveSighting(ctx, &models.Sighting{
		RunID: "run", Name: "a_person", SeenAt: now.AddDate(0, 0, -10), SnapshotPath: "run/old.jpg",
	}))
	require.NoError(t, repo.SaveSighting(ctx, &models.Sighting{
		RunID: "run", Name: "a_person", SeenAt: now.AddDate(0, 0, -9), SnapshotPath: "run/missing.jpg",
	}))
	require.NoError(t, repo.SaveSighting(ctx, &models.Sighting{
		RunID: "run", Name: "b_person", SeenAt: now.AddDate(0, 0, -1),
	}))

	s := NewService(repo, 7, snapDir, time.Hour)
	require.NotNil(t, s)
	s.now = func() time.Time { return now }

	res := s.RunCleanupCycle(ctx)
	assert.Equal(t, 2, res.SightingsDeleted)
	assert.Equal(t, 1, res.FilesDeleted)
	assert.Zero(t, res.FilesFailed)
	assert.NoFileExists(t, oldFile)

	remaining, total, err := repo.ListSightings(ctx, database.SightingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "b_person", remaining[0].Name)

	res = s.RunCleanupCycle(ctx)
	assert.Zero(t, res.SightingsDeleted)
}
