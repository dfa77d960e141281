package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/ratelimit"
	"github.com/crivus/quiziq/internal/store/schema"
)

type fakeStore struct {
	tracker    *schema.Tracker
	events     []*schema.Event
	leads      []*schema.Lead
	leadErr    error
	trackerErr error
}

func (f *fakeStore) GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error) {
	if f.trackerErr != nil {
		return nil, f.trackerErr
	}
	if f.tracker != nil && f.tracker.TrackerID == trackerID {
		return f.tracker, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, event *schema.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) InsertLead(ctx context.Context, lead *schema.Lead) error {
	if f.leadErr != nil {
		return f.leadErr
	}
	f.leads = append(f.leads, lead)
	return nil
}

type fakePolicies struct {
	policy *schema.Policy
}

func (f *fakePolicies) Get(ctx context.Context) (*schema.Policy, error) {
	return f.policy, nil
}

type fakeLimiter struct {
	result   ratelimit.Result
	lastKey  string
	lastLimit int
}

func (f *fakeLimiter) Allow(key string, limit int, window time.Duration) ratelimit.Result {
	f.lastKey = key
	f.lastLimit = limit
	return f.result
}

func (f *fakeLimiter) Close() {}

func activeTracker() *schema.Tracker {
	return &schema.Tracker{
		TrackerID:   "trk_abc",
		OwnerUserID: "owner-1",
		Name:        "Landing quiz",
		SiteURL:     "https://example.com",
		Origins:     datatypes.JSONSlice[string]{},
		Active:      true,
	}
}

func openPolicy() *schema.Policy {
	return &schema.Policy{
		ID:                     true,
		MaxTrackersPerUser:     10,
		MaxCollectRPSPerOrigin: 10,
		RetentionDays:          365,
		AllowedOrigins:         datatypes.JSONSlice[string]{},
	}
}

func validInput() EventInput {
	return EventInput{
		TrackerID: "trk_abc",
		Ev:        "page_view",
		TS:        1772366400000,
		SID:       "s1",
		PageURL:   "https://example.com/quiz?step=1",
		Path:      "/quiz",
	}
}

func newTestPipeline(store *fakeStore, pol *schema.Policy, limiter *fakeLimiter) *Pipeline {
	if limiter == nil {
		limiter = &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 9}}
	}
	return NewPipeline(store, &fakePolicies{policy: pol}, limiter)
}

func TestCollectPersistsEvent(t *testing.T) {
	store := &fakeStore{tracker: activeTracker()}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 9}}
	p := newTestPipeline(store, openPolicy(), limiter)

	err := p.Collect(context.Background(), validInput(), "1.2.3.4")
	require.NoError(t, err)
	require.Len(t, store.events, 1)

	event := store.events[0]
	assert.Equal(t, "page_view", event.Ev)
	assert.Equal(t, "trk_abc", event.TrackerID)
	assert.Equal(t, "/quiz", event.Path)
	assert.Nil(t, event.Ref)
	assert.Empty(t, store.leads)

	assert.Equal(t, "collect:https://example.com:1.2.3.4:s1", limiter.lastKey)
	assert.Equal(t, 10, limiter.lastLimit)
}

func TestCollectValidation(t *testing.T) {
	p := newTestPipeline(&fakeStore{tracker: activeTracker()}, openPolicy(), nil)

	tests := []struct {
		name   string
		mutate func(*EventInput)
	}{
		{"missing tracker_id", func(in *EventInput) { in.TrackerID = "" }},
		{"missing ev", func(in *EventInput) { in.Ev = "" }},
		{"missing ts", func(in *EventInput) { in.TS = 0 }},
		{"missing sid", func(in *EventInput) { in.SID = "" }},
		{"missing page_url", func(in *EventInput) { in.PageURL = "" }},
		{"oversized page_url", func(in *EventInput) { in.PageURL = "https://example.com/" + strings.Repeat("a", 1024) }},
		{"missing path", func(in *EventInput) { in.Path = "" }},
		{"relative page_url", func(in *EventInput) { in.PageURL = "/quiz" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			err := p.Collect(context.Background(), input, "1.2.3.4")
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCollectTrackerStates(t *testing.T) {
	t.Run("unknown tracker", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{}, openPolicy(), nil)
		err := p.Collect(context.Background(), validInput(), "1.2.3.4")
		var nferr *domain.NotFoundError
		require.ErrorAs(t, err, &nferr)
	})

	t.Run("inactive tracker", func(t *testing.T) {
		tracker := activeTracker()
		tracker.Active = false
		p := newTestPipeline(&fakeStore{tracker: tracker}, openPolicy(), nil)
		err := p.Collect(context.Background(), validInput(), "1.2.3.4")
		var ferr *domain.ForbiddenError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "tracker inactive", ferr.Message)
	})

	t.Run("revoked tracker", func(t *testing.T) {
		tracker := activeTracker()
		now := time.Now()
		tracker.RevokedAt = &now
		p := newTestPipeline(&fakeStore{tracker: tracker}, openPolicy(), nil)
		err := p.Collect(context.Background(), validInput(), "1.2.3.4")
		var ferr *domain.ForbiddenError
		require.ErrorAs(t, err, &ferr)
	})
}

func TestCollectOriginChecks(t *testing.T) {
	t.Run("global allowlist rejects", func(t *testing.T) {
		pol := openPolicy()
		pol.AllowedOrigins = datatypes.JSONSlice[string]{"trusted.com"}
		p := newTestPipeline(&fakeStore{tracker: activeTracker()}, pol, nil)
		err := p.Collect(context.Background(), validInput(), "1.2.3.4")
		var ferr *domain.ForbiddenError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "origin not allowed", ferr.Message)
	})

	t.Run("tracker whitelist rejects", func(t *testing.T) {
		tracker := activeTracker()
		tracker.Origins = datatypes.JSONSlice[string]{"https://other.com"}
		p := newTestPipeline(&fakeStore{tracker: tracker}, openPolicy(), nil)
		err := p.Collect(context.Background(), validInput(), "1.2.3.4")
		var ferr *domain.ForbiddenError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "origin not allowed for this tracker", ferr.Message)
	})

	t.Run("tracker whitelist accepts exact origin", func(t *testing.T) {
		tracker := activeTracker()
		tracker.Origins = datatypes.JSONSlice[string]{"https://example.com"}
		store := &fakeStore{tracker: tracker}
		p := newTestPipeline(store, openPolicy(), nil)
		require.NoError(t, p.Collect(context.Background(), validInput(), "1.2.3.4"))
		require.Len(t, store.events, 1)
	})
}

func TestCollectRateLimited(t *testing.T) {
	resetAt := time.Now().Add(time.Second)
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, ResetAt: resetAt}}
	store := &fakeStore{tracker: activeTracker()}
	p := newTestPipeline(store, openPolicy(), limiter)

	err := p.Collect(context.Background(), validInput(), "1.2.3.4")
	var rlerr *domain.RateLimitError
	require.ErrorAs(t, err, &rlerr)
	assert.Equal(t, resetAt, rlerr.ResetAt)
	assert.Empty(t, store.events)
}

func TestCollectLeadCapture(t *testing.T) {
	store := &fakeStore{tracker: activeTracker()}
	p := newTestPipeline(store, openPolicy(), nil)

	input := validInput()
	input.Ev = "lead_capture"
	input.Extra = map[string]interface{}{
		"lead": map[string]interface{}{
			"email":   "alice@example.com",
			"name":    "Alice",
			"consent": true,
		},
	}

	require.NoError(t, p.Collect(context.Background(), input, "1.2.3.4"))
	require.Len(t, store.events, 1)
	require.Len(t, store.leads, 1)

	lead := store.leads[0]
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, input.TS, lead.TS)
	assert.Equal(t, "trk_abc", lead.TrackerID)
	assert.Equal(t, "s1", lead.SID)
	assert.Equal(t, "alice@example.com", *lead.Email)
	assert.Equal(t, "Alice", *lead.Name)
	assert.Nil(t, lead.Phone)
	assert.Contains(t, string(lead.Extra), "consent")
}

func TestCollectLeadCaptureWithoutLeadObject(t *testing.T) {
	store := &fakeStore{tracker: activeTracker()}
	p := newTestPipeline(store, openPolicy(), nil)

	input := validInput()
	input.Ev = "lead_capture"
	input.Extra = map[string]interface{}{"quiz_id": "q1"}

	require.NoError(t, p.Collect(context.Background(), input, "1.2.3.4"))
	require.Len(t, store.events, 1)
	assert.Empty(t, store.leads)
}

func TestCollectLeadFailureDoesNotFailRequest(t *testing.T) {
	store := &fakeStore{tracker: activeTracker(), leadErr: errors.New("disk full")}
	p := newTestPipeline(store, openPolicy(), nil)

	input := validInput()
	input.Ev = "lead_capture"
	input.Extra = map[string]interface{}{
		"lead": map[string]interface{}{"email": "alice@example.com"},
	}

	// The event is durable before the lead insert runs
	require.NoError(t, p.Collect(context.Background(), input, "1.2.3.4"))
	require.Len(t, store.events, 1)
	assert.Empty(t, store.leads)
}

func TestCollectNormalizesEmptyOptionals(t *testing.T) {
	store := &fakeStore{tracker: activeTracker()}
	p := newTestPipeline(store, openPolicy(), nil)

	empty := ""
	input := validInput()
	input.UTMSource = &empty
	input.Ref = &empty

	require.NoError(t, p.Collect(context.Background(), input, "1.2.3.4"))
	event := store.events[0]
	assert.Nil(t, event.UTMSource)
	assert.Nil(t, event.Ref)
}
