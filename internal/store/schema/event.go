package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a single behavioral event reported by the snippet. TS is the
// client-side epoch milliseconds timestamp; CreatedAt is the server receive
// time. Aggregation queries bucket on TS.
type Event struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TS is the client epoch timestamp in milliseconds
	TS int64 `gorm:"column:ts;not null;index:idx_events_tracker_ts,priority:2"`
	// Ev is the event kind (page_view, quiz_start, ...)
	Ev string `gorm:"column:ev;not null;type:text"`
	// SID is the snippet session identifier
	SID string `gorm:"column:sid;not null;type:text"`
	// TrackerID references trackers.tracker_id
	TrackerID string `gorm:"column:tracker_id;not null;type:text;index:idx_events_tracker_ts,priority:1"`

	// Page context, truncated server-side
	PageURL string  `gorm:"column:page_url;not null;type:text"`
	Path    string  `gorm:"column:path;not null;type:text"`
	Ref     *string `gorm:"column:ref;type:text"`

	// UTM attribution
	UTMSource   *string `gorm:"column:utm_source;type:text"`
	UTMMedium   *string `gorm:"column:utm_medium;type:text"`
	UTMCampaign *string `gorm:"column:utm_campaign;type:text"`
	UTMTerm     *string `gorm:"column:utm_term;type:text"`
	UTMContent  *string `gorm:"column:utm_content;type:text"`

	// Screen dimensions
	SW *int `gorm:"column:sw"`
	SH *int `gorm:"column:sh"`

	// Quiz context
	QuizID     *string `gorm:"column:quiz_id;type:text"`
	QuestionID *string `gorm:"column:question_id;type:text"`
	AnswerID   *string `gorm:"column:answer_id;type:text"`

	// Extra carries unstructured payload fields verbatim
	Extra datatypes.JSON `gorm:"column:extra;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}
