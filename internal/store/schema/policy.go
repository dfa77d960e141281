package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Policy is the platform-wide operational policy. The table holds exactly one
// row, keyed by a boolean primary key pinned to true.
type Policy struct {
	ID bool `gorm:"column:id;primaryKey;default:true"`
	// MaxTrackersPerUser caps how many trackers a single owner may create
	MaxTrackersPerUser int `gorm:"column:max_trackers_per_user;not null;default:10"`
	// MaxCollectRPSPerOrigin is the collect rate limit per origin/ip/session
	MaxCollectRPSPerOrigin int `gorm:"column:max_collect_rps_per_origin;not null;default:10"`
	// RetentionDays is how long raw events are kept
	RetentionDays int `gorm:"column:retention_days;not null;default:365"`
	// AllowedOrigins is the global origin allowlist. Empty allows all origins.
	AllowedOrigins datatypes.JSONSlice[string] `gorm:"column:allowed_origins;not null;type:jsonb;default:'[]'"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Policy model
func (Policy) TableName() string {
	return "policies"
}
