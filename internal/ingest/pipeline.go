// Package ingest implements the event collection pipeline: the unauthenticated
// front door that validates, authorizes, rate limits and persists snippet
// events.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/logger"
	"github.com/crivus/quiziq/internal/policy"
	"github.com/crivus/quiziq/internal/ratelimit"
	"github.com/crivus/quiziq/internal/store/schema"
)

const (
	maxURLLength  = 1024
	collectWindow = time.Second
)

// Store is the subset of database operations the pipeline needs.
type Store interface {
	GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error)
	InsertEvent(ctx context.Context, event *schema.Event) error
	InsertLead(ctx context.Context, lead *schema.Lead) error
}

// Policies resolves the current platform policy.
type Policies interface {
	Get(ctx context.Context) (*schema.Policy, error)
}

// EventInput is the untrusted collect payload posted by the snippet.
type EventInput struct {
	TrackerID string `json:"tracker_id" binding:"required"`
	Ev        string `json:"ev" binding:"required"`
	TS        int64  `json:"ts" binding:"required"`
	SID       string `json:"sid" binding:"required"`
	PageURL   string `json:"page_url" binding:"required,max=1024"`
	Path      string `json:"path" binding:"required,max=1024"`

	Ref         *string `json:"ref" binding:"omitempty,max=1024"`
	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMTerm     *string `json:"utm_term"`
	UTMContent  *string `json:"utm_content"`
	SW          *int    `json:"sw"`
	SH          *int    `json:"sh"`
	QuizID      *string `json:"quiz_id"`
	QuestionID  *string `json:"question_id"`
	AnswerID    *string `json:"answer_id"`

	Extra map[string]interface{} `json:"extra"`
}

// Pipeline accepts one untrusted payload per call and either durably appends
// an event (plus at most one lead) or rejects the request with a typed error.
type Pipeline struct {
	store    Store
	policies Policies
	limiter  ratelimit.Limiter
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(store Store, policies Policies, limiter ratelimit.Limiter) *Pipeline {
	return &Pipeline{
		store:    store,
		policies: policies,
		limiter:  limiter,
	}
}

// Collect runs the full ingestion sequence for one payload. clientIP is the
// caller's network address as resolved by the transport layer. Steps run in a
// fixed order and the first failure wins.
func (p *Pipeline) Collect(ctx context.Context, input EventInput, clientIP string) error {
	if err := validate(input); err != nil {
		return err
	}

	tracker, err := p.store.GetTrackerByTrackerID(ctx, input.TrackerID)
	if err != nil {
		return err
	}
	if tracker == nil {
		return domain.NewNotFoundError("tracker")
	}
	if !tracker.Active || tracker.Revoked() {
		return domain.NewForbiddenError("tracker inactive")
	}

	origin, err := domain.ExtractOrigin(input.PageURL)
	if err != nil {
		return domain.NewValidationError("invalid page_url")
	}

	pol, err := p.policies.Get(ctx)
	if err != nil {
		return err
	}
	if !policy.OriginAllowed(pol, origin) {
		return domain.NewForbiddenError("origin not allowed")
	}
	if !policy.TrackerOriginAllowed(tracker, origin) {
		return domain.NewForbiddenError("origin not allowed for this tracker")
	}

	// The limit is read from live policy on every check
	res := p.limiter.Allow(ratelimit.CollectKey(origin, clientIP, input.SID), pol.MaxCollectRPSPerOrigin, collectWindow)
	if !res.Allowed {
		return domain.NewRateLimitError(res.ResetAt)
	}

	event := buildEvent(input)
	if err := p.store.InsertEvent(ctx, event); err != nil {
		return err
	}

	// The event is already durable at this point. A failed lead insert is
	// logged and the request still succeeds.
	if lead := buildLead(input); lead != nil {
		if err := p.store.InsertLead(ctx, lead); err != nil {
			logger.Error(err,
				zap.String("tracker_id", input.TrackerID),
				zap.String("sid", input.SID))
		}
	}

	return nil
}

func validate(input EventInput) error {
	switch {
	case input.TrackerID == "":
		return domain.NewValidationError("tracker_id is required")
	case input.Ev == "":
		return domain.NewValidationError("ev is required")
	case input.TS == 0:
		return domain.NewValidationError("ts is required")
	case input.SID == "":
		return domain.NewValidationError("sid is required")
	case input.PageURL == "":
		return domain.NewValidationError("page_url is required")
	case len(input.PageURL) > maxURLLength:
		return domain.NewValidationError("page_url exceeds 1024 characters")
	case input.Path == "":
		return domain.NewValidationError("path is required")
	case len(input.Path) > maxURLLength:
		return domain.NewValidationError("path exceeds 1024 characters")
	}
	return nil
}

func buildEvent(input EventInput) *schema.Event {
	event := &schema.Event{
		TS:          input.TS,
		Ev:          input.Ev,
		SID:         input.SID,
		TrackerID:   input.TrackerID,
		PageURL:     domain.Truncate(input.PageURL, maxURLLength),
		Path:        domain.Truncate(input.Path, maxURLLength),
		Ref:         truncatePtr(normalize(input.Ref), maxURLLength),
		UTMSource:   normalize(input.UTMSource),
		UTMMedium:   normalize(input.UTMMedium),
		UTMCampaign: normalize(input.UTMCampaign),
		UTMTerm:     normalize(input.UTMTerm),
		UTMContent:  normalize(input.UTMContent),
		SW:          input.SW,
		SH:          input.SH,
		QuizID:      normalize(input.QuizID),
		QuestionID:  normalize(input.QuestionID),
		AnswerID:    normalize(input.AnswerID),
	}
	if len(input.Extra) > 0 {
		if raw, err := json.Marshal(input.Extra); err == nil {
			event.Extra = datatypes.JSON(raw)
		}
	}
	return event
}

// buildLead extracts a lead record from a lead_capture event carrying an
// extra.lead object. Returns nil when the payload yields no lead.
func buildLead(input EventInput) *schema.Lead {
	if input.Ev != string(domain.EventLeadCapture) {
		return nil
	}
	rawLead, ok := input.Extra["lead"].(map[string]interface{})
	if !ok || len(rawLead) == 0 {
		return nil
	}

	lead := &schema.Lead{
		ID:        uuid.NewString(),
		TS:        input.TS,
		TrackerID: input.TrackerID,
		SID:       input.SID,
		Email:     stringField(rawLead, "email"),
		Name:      stringField(rawLead, "name"),
		Phone:     stringField(rawLead, "phone"),
	}
	if raw, err := json.Marshal(rawLead); err == nil {
		lead.Extra = datatypes.JSON(raw)
	}
	return lead
}

func normalize(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func truncatePtr(s *string, max int) *string {
	if s == nil {
		return nil
	}
	truncated := domain.Truncate(*s, max)
	return &truncated
}

func stringField(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}
