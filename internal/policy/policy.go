// Package policy manages the platform-wide operational policy: tracker
// quotas, collect rate limits, retention, and the global origin allowlist.
package policy

import (
	"context"
	"strings"

	"gorm.io/datatypes"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store/schema"
)

// Store is the subset of database operations the policy service needs.
type Store interface {
	GetPolicy(ctx context.Context) (*schema.Policy, error)
	EnsureDefaultPolicy(ctx context.Context) (*schema.Policy, error)
	UpdatePolicy(ctx context.Context, updates map[string]interface{}) (*schema.Policy, error)
}

// Service reads and updates the singleton platform policy.
type Service struct {
	store Store
}

// NewService creates a new policy service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// EnsureDefault creates the policy row with defaults if it does not exist.
// Called once at startup so later reads never race on initialization.
func (s *Service) EnsureDefault(ctx context.Context) (*schema.Policy, error) {
	return s.store.EnsureDefaultPolicy(ctx)
}

// Get returns the current policy, creating the default row if it is missing.
func (s *Service) Get(ctx context.Context) (*schema.Policy, error) {
	policy, err := s.store.GetPolicy(ctx)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return s.store.EnsureDefaultPolicy(ctx)
	}
	return policy, nil
}

// UpdateInput carries a partial policy update. Nil fields are left unchanged.
type UpdateInput struct {
	MaxTrackersPerUser     *int
	MaxCollectRPSPerOrigin *int
	RetentionDays          *int
	AllowedOrigins         *[]string
}

// Update validates and applies a partial policy update, returning the
// resulting policy.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*schema.Policy, error) {
	updates := map[string]interface{}{}

	if input.MaxTrackersPerUser != nil {
		if *input.MaxTrackersPerUser < 0 {
			return nil, domain.NewValidationError("maxTrackersPerUser must be non-negative")
		}
		updates["max_trackers_per_user"] = *input.MaxTrackersPerUser
	}
	if input.MaxCollectRPSPerOrigin != nil {
		if *input.MaxCollectRPSPerOrigin < 1 {
			return nil, domain.NewValidationError("maxCollectRpsPerOrigin must be positive")
		}
		updates["max_collect_rps_per_origin"] = *input.MaxCollectRPSPerOrigin
	}
	if input.RetentionDays != nil {
		if *input.RetentionDays < 1 {
			return nil, domain.NewValidationError("retentionDays must be positive")
		}
		updates["retention_days"] = *input.RetentionDays
	}
	if input.AllowedOrigins != nil {
		origins := make([]string, 0, len(*input.AllowedOrigins))
		for _, origin := range *input.AllowedOrigins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
		updates["allowed_origins"] = datatypes.JSONSlice[string](origins)
	}

	if len(updates) == 0 {
		return s.Get(ctx)
	}

	return s.store.UpdatePolicy(ctx, updates)
}

// OriginAllowed checks an origin against the global allowlist. An empty list
// allows every origin; otherwise the origin must contain one of the entries.
func OriginAllowed(policy *schema.Policy, origin string) bool {
	if len(policy.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range policy.AllowedOrigins {
		if allowed != "" && strings.Contains(origin, allowed) {
			return true
		}
	}
	return false
}

// TrackerOriginAllowed checks an origin against a tracker's own whitelist.
// An empty whitelist accepts any origin.
func TrackerOriginAllowed(tracker *schema.Tracker, origin string) bool {
	if len(tracker.Origins) == 0 {
		return true
	}
	for _, allowed := range tracker.Origins {
		if allowed == origin {
			return true
		}
	}
	return false
}
