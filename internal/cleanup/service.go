package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"facewatch-go/internal/database"
	"facewatch-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// Result fasst einen Bereinigungszyklus zusammen
type Result struct {
	Cutoff           time.Time
	SightingsDeleted int
	FilesDeleted     int
	FilesFailed      int
}

// Service löscht Sichtungen und Snapshot-Dateien, die älter als die Aufbewahrungsfrist sind
type Service struct {
	repo          database.Repository
	retentionDays int
	snapshotDir   string
	checkInterval time.Duration
	now           func() time.Time
}

// NewService erstellt einen neuen Cleanup-Service. Bei retentionDays <= 0 wird nil zurückgegeben (Bereinigung deaktiviert).
func NewService(repo database.Repository, retentionDays int, snapshotDir string, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0)")
		return nil
	}
	if checkInterval <= 0 {
		checkInterval = time.Hour
	}
	log.Infof("Cleanup: retention %d days, snapshots in '%s', every %s", retentionDays, snapshotDir, checkInterval)
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		snapshotDir:   snapshotDir,
		checkInterval: checkInterval,
		now:           timezone.Now,
	}
}

// Start führt sofort einen Zyklus aus und danach einen pro Intervall, bis ctx beendet ist
func (s *Service) Start(ctx context.Context) {
	if s == nil {
		return
	}

	go func() {
		s.RunCleanupCycle(ctx)

		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunCleanupCycle(ctx)
			case <-ctx.Done():
				log.Debug("Stopping background cleanup routine")
				return
			}
		}
	}()
}

// RunCleanupCycle löscht alte Sichtungen und anschließend ihre Snapshot-Dateien.
// Nicht löschbare Dateien werden nur protokolliert, die Datenbankeinträge bleiben gelöscht.
func (s *Service) RunCleanupCycle(ctx context.Context) Result {
	if s == nil {
		return Result{}
	}
	res := Result{Cutoff: s.now().AddDate(0, 0, -s.retentionDays)}

	deleted, err := s.repo.DeleteSightingsBefore(ctx, res.Cutoff)
	if err != nil {
		log.Errorf("Cleanup: %v", err)
		return res
	}
	res.SightingsDeleted = len(deleted)

	for _, sighting := range deleted {
		if sighting.SnapshotPath == "" || s.snapshotDir == "" {
			continue
		}
		path := filepath.Join(s.snapshotDir, filepath.FromSlash(sighting.SnapshotPath))
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warnf("Cleanup: failed to delete snapshot '%s' for sighting %d: %v", path, sighting.ID, err)
				res.FilesFailed++
			}
			continue
		}
		res.FilesDeleted++
	}

	if res.SightingsDeleted > 0 {
		log.Infof("Cleanup cycle finished: %d sightings and %d snapshots older than %s deleted",
			res.SightingsDeleted, res.FilesDeleted, timezone.RFC3339(res.Cutoff))
	} else {
		log.Debug("Cleanup: nothing to delete")
	}
	return res
}
