package store

// EventFilter narrows aggregation queries to a tracker and an optional
// client-timestamp range. From and To are epoch milliseconds, inclusive.
// QuizID further narrows to a single quiz when set.
type EventFilter struct {
	TrackerID string
	From      *int64
	To        *int64
	QuizID    *string
}

// FunnelTotals holds the overall funnel counters of a tracker.
type FunnelTotals struct {
	PageViews     int64 `gorm:"column:page_views"`
	QuizStarts    int64 `gorm:"column:quiz_starts"`
	QuizCompletes int64 `gorm:"column:quiz_completes"`
	Leads         int64 `gorm:"column:leads"`
	CTAClicks     int64 `gorm:"column:cta_clicks"`
}

// SeriesBucket holds funnel counters for a single time bucket. Bucket is a
// formatted date string matching the requested granularity.
type SeriesBucket struct {
	Bucket        string `gorm:"column:bucket"`
	PageViews     int64  `gorm:"column:page_views"`
	QuizStarts    int64  `gorm:"column:quiz_starts"`
	QuizCompletes int64  `gorm:"column:quiz_completes"`
	Leads         int64  `gorm:"column:leads"`
}

// PageCount holds the page-view count of a single path.
type PageCount struct {
	Path  string `gorm:"column:path"`
	Views int64  `gorm:"column:views"`
}

// DropoffBucket holds quiz start and complete counts for a single time bucket.
type DropoffBucket struct {
	Bucket    string `gorm:"column:bucket"`
	Starts    int64  `gorm:"column:starts"`
	Completes int64  `gorm:"column:completes"`
}

// UTMGroup holds funnel counters for a single UTM attribution group. Nil
// pointers represent events that carried no value for that dimension.
type UTMGroup struct {
	Source    *string `gorm:"column:utm_source"`
	Medium    *string `gorm:"column:utm_medium"`
	Campaign  *string `gorm:"column:utm_campaign"`
	Visits    int64   `gorm:"column:visits"`
	Starts    int64   `gorm:"column:starts"`
	Completes int64   `gorm:"column:completes"`
}

// LeadFilter narrows lead listing to a tracker with an optional epoch-ms
// range, free-text search over contact fields and offset pagination.
type LeadFilter struct {
	TrackerID string
	From      *int64
	To        *int64
	Search    string
	Limit     int
	Offset    int
}
