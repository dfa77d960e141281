// Package registry owns the tracker lifecycle: creation under quota, updates,
// revocation, deletion and access resolution.
package registry

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/policy"
	"github.com/crivus/quiziq/internal/store/schema"
)

const maxNameLength = 255

// Store is the subset of database operations the registry needs.
type Store interface {
	CreateTracker(ctx context.Context, tracker *schema.Tracker) error
	GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error)
	UpdateTracker(ctx context.Context, trackerID string, updates map[string]interface{}) (*schema.Tracker, error)
	DeleteTracker(ctx context.Context, trackerID string) error
	CountTrackersByOwner(ctx context.Context, ownerUserID string) (int64, error)
	ListTrackers(ctx context.Context) ([]*schema.Tracker, error)
	ListTrackersForUser(ctx context.Context, userID string) ([]*schema.Tracker, error)
	IsTrackerMember(ctx context.Context, trackerID, userID string) (bool, error)
}

// Policies resolves the current platform policy.
type Policies interface {
	Get(ctx context.Context) (*schema.Policy, error)
}

// Service implements tracker lifecycle operations.
type Service struct {
	store    Store
	policies Policies
	clock    adapter.Clock
}

// NewService creates a new tracker registry service
func NewService(store Store, policies Policies, clock adapter.Clock) *Service {
	return &Service{
		store:    store,
		policies: policies,
		clock:    clock,
	}
}

// newTrackerID generates the opaque external tracker identifier.
func newTrackerID() string {
	return "trk_" + strings.ToLower(ulid.Make().String())
}

// CreateInput carries the fields of a tracker creation request.
type CreateInput struct {
	Name    string
	SiteURL string
}

// Create validates the site URL, enforces the per-owner quota and persists a
// new tracker whose origin whitelist is seeded with the site's origin.
func (s *Service) Create(ctx context.Context, principal domain.Principal, input CreateInput) (*schema.Tracker, error) {
	if input.Name == "" || len(input.Name) > maxNameLength {
		return nil, domain.NewValidationError("name must be between 1 and %d characters", maxNameLength)
	}

	origin, err := domain.ExtractOrigin(input.SiteURL)
	if err != nil {
		return nil, domain.NewValidationError("invalid site URL")
	}

	pol, err := s.policies.Get(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountTrackersByOwner(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if count >= int64(pol.MaxTrackersPerUser) {
		return nil, domain.NewForbiddenError("tracker quota exceeded, max: %d", pol.MaxTrackersPerUser)
	}

	if !policy.OriginAllowed(pol, origin) {
		return nil, domain.NewForbiddenError("origin not allowed")
	}

	tracker := &schema.Tracker{
		TrackerID:   newTrackerID(),
		OwnerUserID: principal.UserID,
		Name:        input.Name,
		SiteURL:     input.SiteURL,
		Origins:     datatypes.JSONSlice[string]{origin},
		Active:      true,
	}
	if err := s.store.CreateTracker(ctx, tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

// CanAccess resolves read access: admins see everything, otherwise the user
// must own the tracker or be an explicit member.
func (s *Service) CanAccess(ctx context.Context, principal domain.Principal, trackerID string) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}

	tracker, err := s.store.GetTrackerByTrackerID(ctx, trackerID)
	if err != nil {
		return false, err
	}
	if tracker != nil && tracker.OwnerUserID == principal.UserID {
		return true, nil
	}

	return s.store.IsTrackerMember(ctx, trackerID, principal.UserID)
}

// Get returns a tracker the principal may read.
func (s *Service) Get(ctx context.Context, principal domain.Principal, trackerID string) (*schema.Tracker, error) {
	ok, err := s.CanAccess(ctx, principal, trackerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewForbiddenError("forbidden")
	}

	tracker, err := s.store.GetTrackerByTrackerID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, domain.NewNotFoundError("tracker")
	}
	return tracker, nil
}

// UpdateInput carries a partial tracker update. Nil fields are left unchanged.
type UpdateInput struct {
	Name    *string
	SiteURL *string
	Origins *[]string
	Active  *bool
}

// Update applies a partial update. Only the owner or an admin may update.
// A site URL change re-derives the origin whitelist; explicitly supplied
// origins are each re-validated against the global allowlist.
func (s *Service) Update(ctx context.Context, principal domain.Principal, trackerID string, input UpdateInput) (*schema.Tracker, error) {
	tracker, err := s.requireOwnerOrAdmin(ctx, principal, trackerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if input.Name != nil {
		if *input.Name == "" || len(*input.Name) > maxNameLength {
			return nil, domain.NewValidationError("name must be between 1 and %d characters", maxNameLength)
		}
		updates["name"] = *input.Name
	}

	if input.Origins != nil {
		pol, err := s.policies.Get(ctx)
		if err != nil {
			return nil, err
		}
		for _, origin := range *input.Origins {
			if !policy.OriginAllowed(pol, origin) {
				return nil, domain.NewForbiddenError("origin not allowed: %s", origin)
			}
		}
		updates["origins"] = datatypes.JSONSlice[string](*input.Origins)
	}

	// A changed site URL wins over explicitly supplied origins
	if input.SiteURL != nil {
		origin, err := domain.ExtractOrigin(*input.SiteURL)
		if err != nil {
			return nil, domain.NewValidationError("invalid site URL")
		}
		updates["site_url"] = *input.SiteURL
		updates["origins"] = datatypes.JSONSlice[string]{origin}
	}

	if input.Active != nil {
		updates["active"] = *input.Active
	}

	if len(updates) == 0 {
		return tracker, nil
	}

	updated, err := s.store.UpdateTracker(ctx, trackerID, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.NewNotFoundError("tracker")
	}
	return updated, nil
}

// Revoke terminally disables a tracker. Only the owner or an admin may revoke.
func (s *Service) Revoke(ctx context.Context, principal domain.Principal, trackerID string) (*schema.Tracker, error) {
	if _, err := s.requireOwnerOrAdmin(ctx, principal, trackerID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateTracker(ctx, trackerID, map[string]interface{}{
		"revoked_at": s.clock.Now(),
		"active":     false,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.NewNotFoundError("tracker")
	}
	return updated, nil
}

// Delete removes a tracker and cascades to its events and leads. Only the
// owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, principal domain.Principal, trackerID string) error {
	if _, err := s.requireOwnerOrAdmin(ctx, principal, trackerID); err != nil {
		return err
	}
	return s.store.DeleteTracker(ctx, trackerID)
}

// List returns all trackers for admins, and owned plus member trackers for
// everyone else.
func (s *Service) List(ctx context.Context, principal domain.Principal) ([]*schema.Tracker, error) {
	if principal.IsAdmin() {
		return s.store.ListTrackers(ctx)
	}
	return s.store.ListTrackersForUser(ctx, principal.UserID)
}

func (s *Service) requireOwnerOrAdmin(ctx context.Context, principal domain.Principal, trackerID string) (*schema.Tracker, error) {
	tracker, err := s.store.GetTrackerByTrackerID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, domain.NewNotFoundError("tracker")
	}
	if !principal.IsAdmin() && tracker.OwnerUserID != principal.UserID {
		return nil, domain.NewForbiddenError("forbidden")
	}
	return tracker, nil
}
