package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Identity is an enrolled gallery entry
type Identity struct {
	gorm.Model
	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	SamplePath string `json:"sample_path"`
	Dimensions int    `json:"dimensions"` // encoding length
	Position   int    `json:"position"`   // gallery order, decides ties
}

// Sighting is one face seen on a processed frame
type Sighting struct {
	gorm.Model
	RunID        string         `gorm:"index;not null" json:"run_id"`
	Name         string         `gorm:"index;not null" json:"name"` // gallery name or the unknown sentinel
	Known        bool           `gorm:"index" json:"known"`
	Distance     float64        `json:"distance"`
	Box          datatypes.JSON `gorm:"type:json" json:"box"` // full-resolution top/right/bottom/left
	FrameIndex   uint64         `json:"frame_index"`
	SnapshotPath string         `json:"snapshot_path,omitempty"`
	SeenAt       time.Time      `gorm:"index" json:"seen_at"`
}

// NameCount is the number of sightings for one name
type NameCount struct {
	Name     string    `json:"name"`
	Count    int64     `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// Statistics summarizes the stored history
type Statistics struct {
	TotalSightings   int64       `json:"total_sightings"`
	KnownSightings   int64       `json:"known_sightings"`
	UnknownSightings int64       `json:"unknown_sightings"`
	IdentityCount    int64       `json:"identity_count"`
	LatestSighting   *time.Time  `json:"latest_sighting,omitempty"`
	ByName           []NameCount `json:"by_name"`
}
