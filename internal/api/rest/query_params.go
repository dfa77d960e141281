package rest

import (
	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/stats"
)

// statsQuery carries the shared filter parameters of the stats endpoints.
// from and to are epoch milliseconds, inclusive.
type statsQuery struct {
	TrackerID string `form:"tracker_id" binding:"required"`
	From      *int64 `form:"from"`
	To        *int64 `form:"to"`
	GroupBy   string `form:"groupBy"`
}

func (q statsQuery) params() stats.Params {
	return stats.Params{
		TrackerID: q.TrackerID,
		From:      q.From,
		To:        q.To,
		GroupBy:   domain.Granularity(q.GroupBy),
	}
}

// dropoffQuery additionally narrows the drop-off series to one quiz.
type dropoffQuery struct {
	statsQuery
	QuizID *string `form:"quiz_id"`
}

// leadsQuery carries lead listing parameters. page is 1-based.
type leadsQuery struct {
	TrackerID string `form:"tracker_id" binding:"required"`
	From      *int64 `form:"from"`
	To        *int64 `form:"to"`
	Page      int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit     int    `form:"limit,default=50" binding:"omitempty,min=1,max=500"`
	Search    string `form:"search"`
}

// leadsExportQuery carries the pagination-free CSV export parameters.
type leadsExportQuery struct {
	TrackerID string `form:"tracker_id" binding:"required"`
	From      *int64 `form:"from"`
	To        *int64 `form:"to"`
}

// exportRequest is the JSON body of the PDF/TXT export endpoints.
type exportRequest struct {
	TrackerID string   `json:"tracker_id" binding:"required"`
	From      *int64   `json:"from"`
	To        *int64   `json:"to"`
	GroupBy   string   `json:"groupBy"`
	Sections  []string `json:"sections"`
	Locale    string   `json:"locale"`
}

// createTrackerRequest is the JSON body of tracker creation.
type createTrackerRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	SiteURL string `json:"siteUrl" binding:"required"`
}

// updateTrackerRequest is the JSON body of a partial tracker update.
type updateTrackerRequest struct {
	Name    *string   `json:"name"`
	SiteURL *string   `json:"siteUrl"`
	Origins *[]string `json:"origins"`
	Active  *bool     `json:"active"`
}

// updatePolicyRequest is the JSON body of a partial policy update.
type updatePolicyRequest struct {
	MaxTrackersPerUser     *int      `json:"maxTrackersPerUser"`
	MaxCollectRPSPerOrigin *int      `json:"maxCollectRpsPerOrigin"`
	RetentionDays          *int      `json:"retentionDays"`
	AllowedOrigins         *[]string `json:"allowedOrigins"`
}
