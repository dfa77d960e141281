// Package stats is the read side of the event log: funnel overviews, time
// series, top pages, drop-off and UTM breakdowns.
package stats

import (
	"context"
	"math"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store"
)

// Store is the subset of database operations the stats service needs.
type Store interface {
	OverviewTotals(ctx context.Context, filter store.EventFilter) (*store.FunnelTotals, error)
	OverviewSeries(ctx context.Context, filter store.EventFilter, granularity domain.Granularity) ([]store.SeriesBucket, error)
	TopPages(ctx context.Context, filter store.EventFilter) ([]store.PageCount, error)
	DropoffSeries(ctx context.Context, filter store.EventFilter, granularity domain.Granularity) ([]store.DropoffBucket, error)
	UTMStats(ctx context.Context, filter store.EventFilter) ([]store.UTMGroup, error)
}

// Params selects the events feeding an aggregation: a tracker, an optional
// inclusive epoch-ms range and a bucketing granularity.
type Params struct {
	TrackerID string
	From      *int64
	To        *int64
	GroupBy   domain.Granularity
}

func (p Params) filter() store.EventFilter {
	return store.EventFilter{
		TrackerID: p.TrackerID,
		From:      p.From,
		To:        p.To,
	}
}

func (p Params) granularity() (domain.Granularity, error) {
	if p.GroupBy == "" {
		return domain.GranularityDay, nil
	}
	if !p.GroupBy.Valid() {
		return "", domain.NewValidationError("groupBy must be day, month or year")
	}
	return p.GroupBy, nil
}

// TimeBucket is one row of the overview time series.
type TimeBucket struct {
	Date      string `json:"date"`
	Visits    int64  `json:"visits"`
	Starts    int64  `json:"starts"`
	Completes int64  `json:"completes"`
	Leads     int64  `json:"leads"`
}

// Overview is the full-range funnel summary plus its time series.
type Overview struct {
	Visits         int64        `json:"visits"`
	Starts         int64        `json:"starts"`
	Completes      int64        `json:"completes"`
	CompletionRate float64      `json:"completionRate"`
	Leads          int64        `json:"leads"`
	LeadRate       float64      `json:"leadRate"`
	Timeseries     []TimeBucket `json:"timeseries"`
}

// TopPage is one row of the top pages breakdown.
type TopPage struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

// DropoffBucket is one row of the drop-off series. Dropoff may be negative
// when completions in a bucket outnumber starts counted in that bucket.
type DropoffBucket struct {
	Date      string `json:"date"`
	Starts    int64  `json:"starts"`
	Completes int64  `json:"completes"`
	Dropoff   int64  `json:"dropoff"`
}

// UTMRow is one row of the UTM breakdown. Null dimensions form their own group.
type UTMRow struct {
	Source    *string `json:"utm_source"`
	Medium    *string `json:"utm_medium"`
	Campaign  *string `json:"utm_campaign"`
	Visits    int64   `json:"visits"`
	Starts    int64   `json:"starts"`
	Completes int64   `json:"completes"`
}

// Service computes read-side aggregations over the event log.
type Service struct {
	store Store
}

// NewService creates a new stats service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Overview returns the funnel counters, derived rates and time series for the
// selected range.
func (s *Service) Overview(ctx context.Context, params Params) (*Overview, error) {
	granularity, err := params.granularity()
	if err != nil {
		return nil, err
	}

	totals, err := s.store.OverviewTotals(ctx, params.filter())
	if err != nil {
		return nil, err
	}

	series, err := s.store.OverviewSeries(ctx, params.filter(), granularity)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Visits:     totals.PageViews,
		Starts:     totals.QuizStarts,
		Completes:  totals.QuizCompletes,
		Leads:      totals.Leads,
		Timeseries: make([]TimeBucket, 0, len(series)),
	}
	if totals.QuizStarts > 0 {
		overview.CompletionRate = round2(float64(totals.QuizCompletes) / float64(totals.QuizStarts) * 100)
	}
	if totals.PageViews > 0 {
		overview.LeadRate = round2(float64(totals.Leads) / float64(totals.PageViews) * 100)
	}

	for _, bucket := range series {
		overview.Timeseries = append(overview.Timeseries, TimeBucket{
			Date:      bucket.Bucket,
			Visits:    bucket.PageViews,
			Starts:    bucket.QuizStarts,
			Completes: bucket.QuizCompletes,
			Leads:     bucket.Leads,
		})
	}
	return overview, nil
}

// TopPages returns the most viewed paths of the selected range.
func (s *Service) TopPages(ctx context.Context, params Params) ([]TopPage, error) {
	rows, err := s.store.TopPages(ctx, params.filter())
	if err != nil {
		return nil, err
	}

	pages := make([]TopPage, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, TopPage{Path: row.Path, Visits: row.Views})
	}
	return pages, nil
}

// Dropoff returns the per-bucket start/complete counts with their difference,
// optionally narrowed to one quiz.
func (s *Service) Dropoff(ctx context.Context, params Params, quizID *string) ([]DropoffBucket, error) {
	granularity, err := params.granularity()
	if err != nil {
		return nil, err
	}

	filter := params.filter()
	filter.QuizID = quizID

	rows, err := s.store.DropoffSeries(ctx, filter, granularity)
	if err != nil {
		return nil, err
	}

	buckets := make([]DropoffBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, DropoffBucket{
			Date:      row.Bucket,
			Starts:    row.Starts,
			Completes: row.Completes,
			Dropoff:   row.Starts - row.Completes,
		})
	}
	return buckets, nil
}

// UTM returns funnel counters grouped by UTM attribution.
func (s *Service) UTM(ctx context.Context, params Params) ([]UTMRow, error) {
	rows, err := s.store.UTMStats(ctx, params.filter())
	if err != nil {
		return nil, err
	}

	groups := make([]UTMRow, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, UTMRow{
			Source:    row.Source,
			Medium:    row.Medium,
			Campaign:  row.Campaign,
			Visits:    row.Visits,
			Starts:    row.Starts,
			Completes: row.Completes,
		})
	}
	return groups, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
