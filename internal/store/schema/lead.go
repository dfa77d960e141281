package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Lead is a captured contact record, extracted from an event payload's
// extra.lead object. It shares TS, TrackerID and SID with the carrying event.
type Lead struct {
	ID string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	// TS is the client epoch timestamp in milliseconds of the carrying event
	TS int64 `gorm:"column:ts;not null"`
	// TrackerID references trackers.tracker_id
	TrackerID string `gorm:"column:tracker_id;not null;type:text;index"`
	// SID is the snippet session identifier of the carrying event
	SID string `gorm:"column:sid;not null;type:text"`

	Email *string `gorm:"column:email;type:text"`
	Name  *string `gorm:"column:name;type:text"`
	Phone *string `gorm:"column:phone;type:text"`

	// Extra carries the remaining lead fields verbatim
	Extra datatypes.JSON `gorm:"column:extra;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Lead model
func (Lead) TableName() string {
	return "leads"
}
