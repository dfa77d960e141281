package store

import (
	"context"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// CreateTracker persists a new tracker
	CreateTracker(ctx context.Context, tracker *schema.Tracker) error
	// GetTrackerByTrackerID retrieves a tracker by its external identifier
	GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error)
	// UpdateTracker applies the given column updates and returns the updated tracker
	UpdateTracker(ctx context.Context, trackerID string, updates map[string]interface{}) (*schema.Tracker, error)
	// DeleteTracker removes a tracker and, via cascade, its events and leads
	DeleteTracker(ctx context.Context, trackerID string) error
	// CountTrackersByOwner counts trackers owned by a user
	CountTrackersByOwner(ctx context.Context, ownerUserID string) (int64, error)
	// ListTrackers retrieves all trackers
	ListTrackers(ctx context.Context) ([]*schema.Tracker, error)
	// ListTrackersForUser retrieves trackers the user owns or is a member of
	ListTrackersForUser(ctx context.Context, userID string) ([]*schema.Tracker, error)
	// IsTrackerMember checks whether a user is a member of a tracker
	IsTrackerMember(ctx context.Context, trackerID, userID string) (bool, error)

	// InsertEvent persists a single behavioral event
	InsertEvent(ctx context.Context, event *schema.Event) error
	// InsertLead persists a captured lead
	InsertLead(ctx context.Context, lead *schema.Lead) error
	// DeleteEventsBefore removes up to limit events older than cutoffTS
	DeleteEventsBefore(ctx context.Context, cutoffTS int64, limit int) (int64, error)

	// GetPolicy retrieves the singleton platform policy
	GetPolicy(ctx context.Context) (*schema.Policy, error)
	// EnsureDefaultPolicy creates the singleton policy row with defaults if absent
	EnsureDefaultPolicy(ctx context.Context) (*schema.Policy, error)
	// UpdatePolicy applies the given column updates and returns the updated policy
	UpdatePolicy(ctx context.Context, updates map[string]interface{}) (*schema.Policy, error)

	// OverviewTotals aggregates funnel counters over matching events
	OverviewTotals(ctx context.Context, filter EventFilter) (*FunnelTotals, error)
	// OverviewSeries aggregates funnel counters per time bucket
	OverviewSeries(ctx context.Context, filter EventFilter, granularity domain.Granularity) ([]SeriesBucket, error)
	// TopPages retrieves the most viewed paths
	TopPages(ctx context.Context, filter EventFilter) ([]PageCount, error)
	// DropoffSeries aggregates quiz starts and completes per time bucket
	DropoffSeries(ctx context.Context, filter EventFilter, granularity domain.Granularity) ([]DropoffBucket, error)
	// UTMStats aggregates event counts per UTM source/medium/campaign group
	UTMStats(ctx context.Context, filter EventFilter) ([]UTMGroup, error)

	// ListLeads retrieves a page of leads with an optional contact search
	ListLeads(ctx context.Context, filter LeadFilter) ([]*schema.Lead, int64, error)
	// AllLeads retrieves every lead matching the filter in insertion order
	AllLeads(ctx context.Context, filter LeadFilter) ([]*schema.Lead, error)
}
