package schema

import "time"

// TrackerMember grants a non-owner user read access to a tracker's stats.
type TrackerMember struct {
	ID string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	// TrackerID references trackers.tracker_id
	TrackerID string `gorm:"column:tracker_id;not null;type:text;uniqueIndex:idx_tracker_members_tracker_user"`
	// UserID is the member's user id
	UserID string `gorm:"column:user_id;not null;type:uuid;uniqueIndex:idx_tracker_members_tracker_user;index"`
	// Role is the membership role within the tracker
	Role      string    `gorm:"column:role;not null;default:'viewer';type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TrackerMember model
func (TrackerMember) TableName() string {
	return "tracker_members"
}
