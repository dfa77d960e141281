package registry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store/schema"
)

type fakeStore struct {
	trackers map[string]*schema.Tracker
	members  map[string][]string // trackerID -> user ids
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trackers: map[string]*schema.Tracker{},
		members:  map[string][]string{},
	}
}

func (f *fakeStore) CreateTracker(ctx context.Context, tracker *schema.Tracker) error {
	f.trackers[tracker.TrackerID] = tracker
	return nil
}

func (f *fakeStore) GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error) {
	return f.trackers[trackerID], nil
}

func (f *fakeStore) UpdateTracker(ctx context.Context, trackerID string, updates map[string]interface{}) (*schema.Tracker, error) {
	tracker, ok := f.trackers[trackerID]
	if !ok {
		return nil, nil
	}
	if v, ok := updates["name"].(string); ok {
		tracker.Name = v
	}
	if v, ok := updates["site_url"].(string); ok {
		tracker.SiteURL = v
	}
	if v, ok := updates["origins"].(datatypes.JSONSlice[string]); ok {
		tracker.Origins = v
	}
	if v, ok := updates["active"].(bool); ok {
		tracker.Active = v
	}
	if v, ok := updates["revoked_at"].(time.Time); ok {
		tracker.RevokedAt = &v
	}
	return tracker, nil
}

func (f *fakeStore) DeleteTracker(ctx context.Context, trackerID string) error {
	delete(f.trackers, trackerID)
	f.deleted = append(f.deleted, trackerID)
	return nil
}

func (f *fakeStore) CountTrackersByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	var count int64
	for _, tracker := range f.trackers {
		if tracker.OwnerUserID == ownerUserID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListTrackers(ctx context.Context) ([]*schema.Tracker, error) {
	var out []*schema.Tracker
	for _, tracker := range f.trackers {
		out = append(out, tracker)
	}
	return out, nil
}

func (f *fakeStore) ListTrackersForUser(ctx context.Context, userID string) ([]*schema.Tracker, error) {
	var out []*schema.Tracker
	for id, tracker := range f.trackers {
		if tracker.OwnerUserID == userID {
			out = append(out, tracker)
			continue
		}
		for _, member := range f.members[id] {
			if member == userID {
				out = append(out, tracker)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) IsTrackerMember(ctx context.Context, trackerID, userID string) (bool, error) {
	for _, member := range f.members[trackerID] {
		if member == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakePolicies struct {
	policy *schema.Policy
}

func (f *fakePolicies) Get(ctx context.Context) (*schema.Policy, error) {
	return f.policy, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                          { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration        { return c.now.Sub(t) }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c *fakeClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func openPolicy() *schema.Policy {
	return &schema.Policy{
		ID:                     true,
		MaxTrackersPerUser:     2,
		MaxCollectRPSPerOrigin: 10,
		RetentionDays:          365,
		AllowedOrigins:         datatypes.JSONSlice[string]{},
	}
}

var (
	owner = domain.Principal{UserID: "owner-1", Email: "owner@example.com", Role: domain.RoleUser}
	other = domain.Principal{UserID: "other-1", Email: "other@example.com", Role: domain.RoleUser}
	admin = domain.Principal{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
)

func newTestService(store *fakeStore, pol *schema.Policy) *Service {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(store, &fakePolicies{policy: pol}, clock)
}

func TestCreateTracker(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, openPolicy())

	tracker, err := svc.Create(context.Background(), owner, CreateInput{
		Name:    "Landing quiz",
		SiteURL: "https://example.com/landing",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tracker.TrackerID, "trk_"))
	assert.Equal(t, "owner-1", tracker.OwnerUserID)
	assert.Equal(t, []string{"https://example.com"}, []string(tracker.Origins))
	assert.True(t, tracker.Active)

	// External ids are unique per tracker
	second, err := svc.Create(context.Background(), owner, CreateInput{
		Name:    "Other quiz",
		SiteURL: "https://example.com",
	})
	require.NoError(t, err)
	assert.NotEqual(t, tracker.TrackerID, second.TrackerID)
}

func TestCreateTrackerValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), openPolicy())
	ctx := context.Background()

	var verr *domain.ValidationError
	_, err := svc.Create(ctx, owner, CreateInput{Name: "", SiteURL: "https://example.com"})
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, owner, CreateInput{Name: strings.Repeat("a", 256), SiteURL: "https://example.com"})
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, owner, CreateInput{Name: "ok", SiteURL: "not-a-url"})
	require.ErrorAs(t, err, &verr)
}

func TestCreateTrackerQuota(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, owner, CreateInput{Name: "q", SiteURL: "https://example.com"})
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, owner, CreateInput{Name: "q", SiteURL: "https://example.com"})
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Message, "quota")

	// Quota is per owner
	_, err = svc.Create(ctx, other, CreateInput{Name: "q", SiteURL: "https://example.com"})
	require.NoError(t, err)
}

func TestCreateTrackerGlobalAllowlist(t *testing.T) {
	pol := openPolicy()
	pol.AllowedOrigins = datatypes.JSONSlice[string]{"trusted.com"}
	svc := newTestService(newFakeStore(), pol)

	_, err := svc.Create(context.Background(), owner, CreateInput{Name: "q", SiteURL: "https://evil.com"})
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	_, err = svc.Create(context.Background(), owner, CreateInput{Name: "q", SiteURL: "https://trusted.com"})
	require.NoError(t, err)
}

func seedTracker(store *fakeStore, trackerID, ownerID string) *schema.Tracker {
	tracker := &schema.Tracker{
		TrackerID:   trackerID,
		OwnerUserID: ownerID,
		Name:        "Landing quiz",
		SiteURL:     "https://example.com",
		Origins:     datatypes.JSONSlice[string]{"https://example.com"},
		Active:      true,
	}
	store.trackers[trackerID] = tracker
	return tracker
}

func TestCanAccess(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	store.members["trk_a"] = []string{"member-1"}
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	ok, err := svc.CanAccess(ctx, owner, "trk_a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAccess(ctx, admin, "trk_a")
	require.NoError(t, err)
	assert.True(t, ok)

	member := domain.Principal{UserID: "member-1", Role: domain.RoleUser}
	ok, err = svc.CanAccess(ctx, member, "trk_a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAccess(ctx, other, "trk_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetTracker(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	tracker, err := svc.Get(ctx, owner, "trk_a")
	require.NoError(t, err)
	assert.Equal(t, "trk_a", tracker.TrackerID)

	_, err = svc.Get(ctx, other, "trk_a")
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	_, err = svc.Get(ctx, admin, "trk_missing")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateTracker(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	updated, err := svc.Update(ctx, owner, "trk_a", UpdateInput{
		Name:   strPtr("Renamed"),
		Active: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.Active)

	// Site URL change re-derives the origin list
	updated, err = svc.Update(ctx, owner, "trk_a", UpdateInput{
		SiteURL: strPtr("https://new.example.com/page"),
		Origins: &[]string{"https://stale.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com/page", updated.SiteURL)
	assert.Equal(t, []string{"https://new.example.com"}, []string(updated.Origins))

	_, err = svc.Update(ctx, other, "trk_a", UpdateInput{Name: strPtr("x")})
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	_, err = svc.Update(ctx, owner, "trk_missing", UpdateInput{Name: strPtr("x")})
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestUpdateTrackerOriginValidation(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	pol := openPolicy()
	pol.AllowedOrigins = datatypes.JSONSlice[string]{"trusted.com"}
	svc := newTestService(store, pol)

	_, err := svc.Update(context.Background(), owner, "trk_a", UpdateInput{
		Origins: &[]string{"https://trusted.com", "https://evil.com"},
	})
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Message, "evil.com")
}

func TestRevokeTracker(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	_, err := svc.Revoke(ctx, other, "trk_a")
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	revoked, err := svc.Revoke(ctx, admin, "trk_a")
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)
	assert.False(t, revoked.Active)
}

func TestDeleteTracker(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	err := svc.Delete(ctx, other, "trk_a")
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)

	require.NoError(t, svc.Delete(ctx, owner, "trk_a"))
	assert.Equal(t, []string{"trk_a"}, store.deleted)
}

func TestListTrackers(t *testing.T) {
	store := newFakeStore()
	seedTracker(store, "trk_a", "owner-1")
	seedTracker(store, "trk_b", "other-1")
	seedTracker(store, "trk_c", "other-1")
	store.members["trk_c"] = []string{"owner-1"}
	svc := newTestService(store, openPolicy())
	ctx := context.Background()

	mine, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
