package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the database tables for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Tracker{},
		&schema.TrackerMember{},
		&schema.Event{},
		&schema.Lead{},
		&schema.Policy{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. If any of the pool settings are 0, reasonable defaults
// are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateTracker persists a new tracker
func (s *pgStore) CreateTracker(ctx context.Context, tracker *schema.Tracker) error {
	if err := s.db.WithContext(ctx).Create(tracker).Error; err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	return nil
}

// GetTrackerByTrackerID retrieves a tracker by its external identifier
func (s *pgStore) GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error) {
	var tracker schema.Tracker
	err := s.db.WithContext(ctx).Where("tracker_id = ?", trackerID).First(&tracker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tracker: %w", err)
	}
	return &tracker, nil
}

// UpdateTracker applies the given column updates and returns the updated tracker.
// Returns nil, nil when no tracker matches.
func (s *pgStore) UpdateTracker(ctx context.Context, trackerID string, updates map[string]interface{}) (*schema.Tracker, error) {
	tx := s.db.WithContext(ctx).
		Model(&schema.Tracker{}).
		Where("tracker_id = ?", trackerID).
		Updates(updates)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to update tracker: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetTrackerByTrackerID(ctx, trackerID)
}

// DeleteTracker removes a tracker and, via cascade, its events and leads
func (s *pgStore) DeleteTracker(ctx context.Context, trackerID string) error {
	err := s.db.WithContext(ctx).
		Where("tracker_id = ?", trackerID).
		Delete(&schema.Tracker{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete tracker: %w", err)
	}
	return nil
}

// CountTrackersByOwner counts trackers owned by a user
func (s *pgStore) CountTrackersByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Tracker{}).
		Where("owner_user_id = ?", ownerUserID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count trackers: %w", err)
	}
	return count, nil
}

// ListTrackers retrieves all trackers, newest first
func (s *pgStore) ListTrackers(ctx context.Context) ([]*schema.Tracker, error) {
	var trackers []*schema.Tracker
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&trackers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	return trackers, nil
}

// ListTrackersForUser retrieves trackers the user owns or is a member of
func (s *pgStore) ListTrackersForUser(ctx context.Context, userID string) ([]*schema.Tracker, error) {
	var trackers []*schema.Tracker
	err := s.db.WithContext(ctx).
		Where("owner_user_id = ? OR tracker_id IN (SELECT tracker_id FROM tracker_members WHERE user_id = ?)", userID, userID).
		Order("created_at DESC").
		Find(&trackers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers for user: %w", err)
	}
	return trackers, nil
}

// IsTrackerMember checks whether a user is a member of a tracker
func (s *pgStore) IsTrackerMember(ctx context.Context, trackerID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.TrackerMember{}).
		Where("tracker_id = ? AND user_id = ?", trackerID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check tracker membership: %w", err)
	}
	return count > 0, nil
}

// InsertEvent persists a single behavioral event
func (s *pgStore) InsertEvent(ctx context.Context, event *schema.Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertLead persists a captured lead
func (s *pgStore) InsertLead(ctx context.Context, lead *schema.Lead) error {
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// DeleteEventsBefore removes up to limit events older than cutoffTS. It
// deletes in bounded batches so retention sweeps never hold long row locks.
func (s *pgStore) DeleteEventsBefore(ctx context.Context, cutoffTS int64, limit int) (int64, error) {
	victims := s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Select("id").
		Where("ts < ?", cutoffTS).
		Limit(limit)
	result := s.db.WithContext(ctx).Where("id IN (?)", victims).Delete(&schema.Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetPolicy retrieves the singleton platform policy
func (s *pgStore) GetPolicy(ctx context.Context) (*schema.Policy, error) {
	var policy schema.Policy
	err := s.db.WithContext(ctx).Where("id = ?", true).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &policy, nil
}

// EnsureDefaultPolicy creates the singleton policy row with defaults if absent
// and returns the current row.
func (s *pgStore) EnsureDefaultPolicy(ctx context.Context) (*schema.Policy, error) {
	policy := schema.Policy{
		ID:                     true,
		MaxTrackersPerUser:     10,
		MaxCollectRPSPerOrigin: 10,
		RetentionDays:          365,
		AllowedOrigins:         datatypes.JSONSlice[string]{},
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&policy).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default policy: %w", err)
	}
	return s.GetPolicy(ctx)
}

// UpdatePolicy applies the given column updates and returns the updated policy
func (s *pgStore) UpdatePolicy(ctx context.Context, updates map[string]interface{}) (*schema.Policy, error) {
	err := s.db.WithContext(ctx).
		Model(&schema.Policy{}).
		Where("id = ?", true).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}
	return s.GetPolicy(ctx)
}

func (s *pgStore) eventQuery(ctx context.Context, filter EventFilter) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Where("tracker_id = ?", filter.TrackerID)
	if filter.From != nil {
		q = q.Where("ts >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("ts <= ?", *filter.To)
	}
	if filter.QuizID != nil {
		q = q.Where("quiz_id = ?", *filter.QuizID)
	}
	return q
}

// OverviewTotals aggregates funnel counters over matching events
func (s *pgStore) OverviewTotals(ctx context.Context, filter EventFilter) (*FunnelTotals, error) {
	var totals FunnelTotals
	err := s.eventQuery(ctx, filter).
		Select(`count(*) FILTER (WHERE ev = 'page_view') AS page_views,
			count(*) FILTER (WHERE ev = 'quiz_start') AS quiz_starts,
			count(*) FILTER (WHERE ev = 'quiz_complete') AS quiz_completes,
			count(*) FILTER (WHERE ev = 'lead_capture') AS leads,
			count(*) FILTER (WHERE ev = 'cta_click') AS cta_clicks`).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate overview totals: %w", err)
	}
	return &totals, nil
}

// OverviewSeries aggregates funnel counters per time bucket, ordered by bucket
func (s *pgStore) OverviewSeries(ctx context.Context, filter EventFilter, granularity domain.Granularity) ([]SeriesBucket, error) {
	var buckets []SeriesBucket
	err := s.eventQuery(ctx, filter).
		Select(`to_char(to_timestamp(ts / 1000.0), ?) AS bucket,
			count(*) FILTER (WHERE ev = 'page_view') AS page_views,
			count(*) FILTER (WHERE ev = 'quiz_start') AS quiz_starts,
			count(*) FILTER (WHERE ev = 'quiz_complete') AS quiz_completes,
			count(*) FILTER (WHERE ev = 'lead_capture') AS leads`, granularity.DateFormat()).
		Group("1").
		Order("1").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate overview series: %w", err)
	}
	return buckets, nil
}

// TopPages retrieves the 20 most viewed paths
func (s *pgStore) TopPages(ctx context.Context, filter EventFilter) ([]PageCount, error) {
	var pages []PageCount
	err := s.eventQuery(ctx, filter).
		Where("ev = ?", domain.EventPageView).
		Select("path, count(*) AS views").
		Group("path").
		Order("count(*) DESC").
		Limit(20).
		Scan(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top pages: %w", err)
	}
	return pages, nil
}

// DropoffSeries aggregates quiz starts and completes per time bucket
func (s *pgStore) DropoffSeries(ctx context.Context, filter EventFilter, granularity domain.Granularity) ([]DropoffBucket, error) {
	var buckets []DropoffBucket
	err := s.eventQuery(ctx, filter).
		Select(`to_char(to_timestamp(ts / 1000.0), ?) AS bucket,
			count(*) FILTER (WHERE ev = 'quiz_start') AS starts,
			count(*) FILTER (WHERE ev = 'quiz_complete') AS completes`, granularity.DateFormat()).
		Group("1").
		Order("1").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dropoff series: %w", err)
	}
	return buckets, nil
}

// UTMStats aggregates event counts per UTM group, most frequent first. Groups
// with no value on a dimension are kept, with that dimension NULL.
func (s *pgStore) UTMStats(ctx context.Context, filter EventFilter) ([]UTMGroup, error) {
	var groups []UTMGroup
	err := s.eventQuery(ctx, filter).
		Select(`utm_source, utm_medium, utm_campaign,
			count(*) FILTER (WHERE ev = 'page_view') AS visits,
			count(*) FILTER (WHERE ev = 'quiz_start') AS starts,
			count(*) FILTER (WHERE ev = 'quiz_complete') AS completes`).
		Group("utm_source, utm_medium, utm_campaign").
		Order("count(*) DESC").
		Limit(50).
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate utm stats: %w", err)
	}
	return groups, nil
}

// ListLeads retrieves a page of leads, newest first, along with the total
// count of matches. Search matches email, name or phone case-insensitively.
func (s *pgStore) ListLeads(ctx context.Context, filter LeadFilter) ([]*schema.Lead, int64, error) {
	q := s.leadQuery(ctx, filter)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("email ILIKE ? OR name ILIKE ? OR phone ILIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []*schema.Lead
	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&leads).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// AllLeads retrieves every lead matching the filter in insertion order, for
// full CSV export. Search and pagination fields are ignored.
func (s *pgStore) AllLeads(ctx context.Context, filter LeadFilter) ([]*schema.Lead, error) {
	var leads []*schema.Lead
	err := s.leadQuery(ctx, filter).
		Order("created_at").
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

func (s *pgStore) leadQuery(ctx context.Context, filter LeadFilter) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&schema.Lead{}).
		Where("tracker_id = ?", filter.TrackerID)
	if filter.From != nil {
		q = q.Where("ts >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("ts <= ?", *filter.To)
	}
	return q
}
