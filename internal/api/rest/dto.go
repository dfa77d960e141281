package rest

import (
	"encoding/json"
	"time"

	"github.com/crivus/quiziq/internal/store/schema"
)

// trackerResponse is the wire shape of a tracker.
type trackerResponse struct {
	ID          string          `json:"id"`
	TrackerID   string          `json:"trackerId"`
	OwnerUserID string          `json:"ownerUserId"`
	Name        string          `json:"name"`
	SiteURL     string          `json:"siteUrl"`
	Origins     []string        `json:"origins"`
	Active      bool            `json:"active"`
	PageRules   json.RawMessage `json:"pageRules,omitempty"`
	RevokedAt   *time.Time      `json:"revokedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toTrackerResponse(t *schema.Tracker) trackerResponse {
	return trackerResponse{
		ID:          t.ID,
		TrackerID:   t.TrackerID,
		OwnerUserID: t.OwnerUserID,
		Name:        t.Name,
		SiteURL:     t.SiteURL,
		Origins:     append([]string{}, t.Origins...),
		Active:      t.Active,
		PageRules:   json.RawMessage(t.PageRules),
		RevokedAt:   t.RevokedAt,
		CreatedAt:   t.CreatedAt,
	}
}

func toTrackerResponses(trackers []*schema.Tracker) []trackerResponse {
	out := make([]trackerResponse, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, toTrackerResponse(t))
	}
	return out
}

// leadResponse is the wire shape of a captured lead.
type leadResponse struct {
	ID        string          `json:"id"`
	TS        int64           `json:"ts"`
	TrackerID string          `json:"trackerId"`
	SID       string          `json:"sid"`
	Email     *string         `json:"email"`
	Name      *string         `json:"name"`
	Phone     *string         `json:"phone"`
	Extra     json.RawMessage `json:"extra,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toLeadResponses(leads []*schema.Lead) []leadResponse {
	out := make([]leadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, leadResponse{
			ID:        lead.ID,
			TS:        lead.TS,
			TrackerID: lead.TrackerID,
			SID:       lead.SID,
			Email:     lead.Email,
			Name:      lead.Name,
			Phone:     lead.Phone,
			Extra:     json.RawMessage(lead.Extra),
			CreatedAt: lead.CreatedAt,
		})
	}
	return out
}

// paginationResponse describes one page of a listed collection.
type paginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// policyResponse is the wire shape of the platform policy.
type policyResponse struct {
	MaxTrackersPerUser     int       `json:"maxTrackersPerUser"`
	MaxCollectRPSPerOrigin int       `json:"maxCollectRpsPerOrigin"`
	RetentionDays          int       `json:"retentionDays"`
	AllowedOrigins         []string  `json:"allowedOrigins"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func toPolicyResponse(p *schema.Policy) policyResponse {
	return policyResponse{
		MaxTrackersPerUser:     p.MaxTrackersPerUser,
		MaxCollectRPSPerOrigin: p.MaxCollectRPSPerOrigin,
		RetentionDays:          p.RetentionDays,
		AllowedOrigins:         append([]string{}, p.AllowedOrigins...),
		UpdatedAt:              p.UpdatedAt,
	}
}
