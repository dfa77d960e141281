package domain

// EventKind identifies the behavioral fact an event records. Kinds are an
// open set in storage: the snippet may send kinds this service has never seen,
// and aggregation filters by exact match, ignoring unknown kinds.
type EventKind string

const (
	EventPageView       EventKind = "page_view"
	EventQuizStart      EventKind = "quiz_start"
	EventQuestionView   EventKind = "question_view"
	EventAnswerSelect   EventKind = "answer_select"
	EventQuestionSubmit EventKind = "question_submit"
	EventQuizComplete   EventKind = "quiz_complete"
	EventLeadCapture    EventKind = "lead_capture"
	EventCTAClick       EventKind = "cta_click"
)

// Role is the dashboard-side role carried by an authenticated principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Principal is an already-authenticated caller. The collection endpoint never
// sees one; every dashboard operation requires one, resolved by the auth
// middleware and passed in explicitly.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal has the administrative role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Granularity is a time-series bucketing unit.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// Valid reports whether g is a supported bucketing unit.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// DateFormat returns the Postgres to_char format producing the bucket label
// for this granularity. Labels sort lexicographically in chronological order.
func (g Granularity) DateFormat() string {
	switch g {
	case GranularityMonth:
		return "YYYY-MM"
	case GranularityYear:
		return "YYYY"
	default:
		return "YYYY-MM-DD"
	}
}
