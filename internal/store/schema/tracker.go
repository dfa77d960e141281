package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Tracker represents the trackers table - a per-site collection endpoint and
// its configuration. The external TrackerID is the value embedded in the
// snippet; it is opaque and distinct from the internal row id.
type Tracker struct {
	// ID is the internal database primary key
	ID string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	// TrackerID is the opaque external identifier (trk_<ulid>)
	TrackerID string `gorm:"column:tracker_id;not null;uniqueIndex;type:text"`
	// OwnerUserID is the id of the user who created the tracker
	OwnerUserID string `gorm:"column:owner_user_id;not null;type:uuid;index"`
	// Name is the display name
	Name string `gorm:"column:name;not null;type:text"`
	// SiteURL is the canonical site URL the snippet is embedded on
	SiteURL string `gorm:"column:site_url;not null;type:text"`
	// Origins is the tracker-scoped origin whitelist. Empty means any origin
	// that passes the global policy check is accepted.
	Origins datatypes.JSONSlice[string] `gorm:"column:origins;not null;type:jsonb;default:'[]'"`
	// Active toggles collection without revoking the tracker
	Active bool `gorm:"column:active;not null;default:true"`
	// PageRules is opaque per-page configuration consumed by the snippet
	PageRules datatypes.JSON `gorm:"column:page_rules;type:jsonb"`
	// RevokedAt is a terminal revocation marker, independent of Active
	RevokedAt *time.Time `gorm:"column:revoked_at;type:timestamptz"`
	// CreatedAt is the timestamp when the tracker was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Members []TrackerMember `gorm:"foreignKey:TrackerID;references:TrackerID;constraint:OnDelete:CASCADE"`
	Events  []Event         `gorm:"foreignKey:TrackerID;references:TrackerID;constraint:OnDelete:CASCADE"`
	Leads   []Lead          `gorm:"foreignKey:TrackerID;references:TrackerID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Tracker model
func (Tracker) TableName() string {
	return "trackers"
}

// Revoked reports whether the tracker has been terminally revoked.
func (t *Tracker) Revoked() bool {
	return t.RevokedAt != nil
}
