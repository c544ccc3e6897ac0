package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"facewatch-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// SightingFilter narrows ListSightings
type SightingFilter struct {
	Name   string
	RunID  string
	Since  time.Time
	Limit  int
	Offset int
}

// Repository is the persistence interface used by the notifier, the API and cleanup
type Repository interface {
	UpsertIdentities(ctx context.Context, identities []models.Identity) error
	GetIdentities(ctx context.Context) ([]models.Identity, error)

	SaveSighting(ctx context.Context, sighting *models.Sighting) error
	GetSighting(ctx context.Context, id uint) (*models.Sighting, error)
	ListSightings(ctx context.Context, filter SightingFilter) ([]models.Sighting, int64, error)
	DeleteSightingsBefore(ctx context.Context, cutoff time.Time) ([]models.Sighting, error)

	GetStatistics(ctx context.Context) (models.Statistics, error)
}

// SQLiteRepository implements Repository with gorm
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a repository on db
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertIdentities makes the stored identities match the current gallery:
// new names are inserted, existing ones refreshed (and restored if they were
// removed earlier), and names missing from identities are soft-deleted.
func (r *SQLiteRepository) UpsertIdentities(ctx context.Context, identities []models.Identity) error {
	if len(identities) == 0 {
		return nil
	}

	names := make([]string, len(identities))
	for i, id := range identities {
		names[i] = id.Name
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"sample_path", "dimensions", "position", "updated_at", "deleted_at"}),
		}).Create(&identities).Error
		if err != nil {
			return err
		}
		return tx.Where("name NOT IN ?", names).Delete(&models.Identity{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert identities: %w", err)
	}
	return nil
}

// GetIdentities returns identities in gallery order
func (r *SQLiteRepository) GetIdentities(ctx context.Context) ([]models.Identity, error) {
	var identities []models.Identity
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// SaveSighting stores a sighting
func (r *SQLiteRepository) SaveSighting(ctx context.Context, sighting *models.Sighting) error {
	if err := r.db.WithContext(ctx).Create(sighting).Error; err != nil {
		return fmt.Errorf("failed to save sighting: %w", err)
	}
	return nil
}

// GetSighting returns one sighting or ErrNotFound
func (r *SQLiteRepository) GetSighting(ctx context.Context, id uint) (*models.Sighting, error) {
	var sighting models.Sighting
	err := r.db.WithContext(ctx).First(&sighting, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting %d: %w", id, err)
	}
	return &sighting, nil
}

// ListSightings returns matching sightings, newest first, plus the total count
func (r *SQLiteRepository) ListSightings(ctx context.Context, filter SightingFilter) ([]models.Sighting, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Sighting{})
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.RunID != "" {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("seen_at >= ?", filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sightings: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var sightings []models.Sighting
	err := query.Order("seen_at DESC").Order("id DESC").
		Limit(limit).Offset(filter.Offset).
		Find(&sightings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sightings: %w", err)
	}
	return sightings, total, nil
}

// DeleteSightingsBefore permanently removes sightings seen before cutoff and
// returns them so callers can remove their snapshot files
func (r *SQLiteRepository) DeleteSightingsBefore(ctx context.Context, cutoff time.Time) ([]models.Sighting, error) {
	var deleted []models.Sighting
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("seen_at < ?", cutoff).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		return tx.Unscoped().Where("seen_at < ?", cutoff).Delete(&models.Sighting{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete sightings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}

// GetStatistics aggregates the sighting history
func (r *SQLiteRepository) GetStatistics(ctx context.Context) (models.Statistics, error) {
	var stats models.Statistics
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Sighting{}).Count(&stats.TotalSightings).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Sighting{}).Where("known = ?", true).Count(&stats.KnownSightings).Error; err != nil {
		return stats, err
	}
	stats.UnknownSightings = stats.TotalSightings - stats.KnownSightings

	if err := db.Model(&models.Identity{}).Count(&stats.IdentityCount).Error; err != nil {
		return stats, err
	}

	var latest models.Sighting
	err := db.Order("seen_at DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return stats, err
	}
	if latest.ID != 0 {
		seen := latest.SeenAt
		stats.LatestSighting = &seen
	}

	// MAX() over a datetime column comes back as text from sqlite, so the
	// last seen time is looked up per name
	var counts []struct {
		Name  string
		Count int64
	}
	err = db.Model(&models.Sighting{}).
		Select("name, COUNT(*) AS count").
		Group("name").
		Order("count DESC, name ASC").
		Scan(&counts).Error
	if err != nil {
		return stats, err
	}

	stats.ByName = make([]models.NameCount, 0, len(counts))
	for _, c := range counts {
		var last models.Sighting
		if err := db.Where("name = ?", c.Name).Order("seen_at DESC").Limit(1).Find(&last).Error; err != nil {
			return stats, err
		}
		stats.ByName = append(stats.ByName, models.NameCount{Name: c.Name, Count: c.Count, LastSeen: last.SeenAt})
	}

	return stats, nil
}
