package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/store"
)

type fakeStore struct {
	totals     store.FunnelTotals
	series     []store.SeriesBucket
	pages      []store.PageCount
	dropoff    []store.DropoffBucket
	utm        []store.UTMGroup
	lastFilter store.EventFilter
	lastGran   domain.Granularity
}

func (f *fakeStore) OverviewTotals(ctx context.Context, filter store.EventFilter) (*store.FunnelTotals, error) {
	f.lastFilter = filter
	totals := f.totals
	return &totals, nil
}

func (f *fakeStore) OverviewSeries(ctx context.Context, filter store.EventFilter, granularity domain.Granularity) ([]store.SeriesBucket, error) {
	f.lastGran = granularity
	return f.series, nil
}

func (f *fakeStore) TopPages(ctx context.Context, filter store.EventFilter) ([]store.PageCount, error) {
	f.lastFilter = filter
	return f.pages, nil
}

func (f *fakeStore) DropoffSeries(ctx context.Context, filter store.EventFilter, granularity domain.Granularity) ([]store.DropoffBucket, error) {
	f.lastFilter = filter
	f.lastGran = granularity
	return f.dropoff, nil
}

func (f *fakeStore) UTMStats(ctx context.Context, filter store.EventFilter) ([]store.UTMGroup, error) {
	f.lastFilter = filter
	return f.utm, nil
}

func TestOverviewRates(t *testing.T) {
	fs := &fakeStore{
		totals: store.FunnelTotals{PageViews: 150, QuizStarts: 90, QuizCompletes: 30, Leads: 10},
		series: []store.SeriesBucket{
			{Bucket: "2026-03-01", PageViews: 100, QuizStarts: 60, QuizCompletes: 20, Leads: 7},
			{Bucket: "2026-03-02", PageViews: 50, QuizStarts: 30, QuizCompletes: 10, Leads: 3},
		},
	}
	svc := NewService(fs)

	overview, err := svc.Overview(context.Background(), Params{TrackerID: "trk_a"})
	require.NoError(t, err)

	assert.Equal(t, int64(150), overview.Visits)
	assert.InDelta(t, 33.33, overview.CompletionRate, 0.001)
	assert.InDelta(t, 6.67, overview.LeadRate, 0.001)
	require.Len(t, overview.Timeseries, 2)
	assert.Equal(t, "2026-03-01", overview.Timeseries[0].Date)
	assert.Equal(t, int64(60), overview.Timeseries[0].Starts)

	// Unset groupBy defaults to day
	assert.Equal(t, domain.GranularityDay, fs.lastGran)
}

func TestOverviewZeroDenominators(t *testing.T) {
	fs := &fakeStore{totals: store.FunnelTotals{}}
	svc := NewService(fs)

	overview, err := svc.Overview(context.Background(), Params{TrackerID: "trk_a"})
	require.NoError(t, err)
	assert.Zero(t, overview.CompletionRate)
	assert.Zero(t, overview.LeadRate)
	assert.Empty(t, overview.Timeseries)
}

func TestOverviewInvalidGranularity(t *testing.T) {
	svc := NewService(&fakeStore{})

	_, err := svc.Overview(context.Background(), Params{TrackerID: "trk_a", GroupBy: "week"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestTopPages(t *testing.T) {
	fs := &fakeStore{pages: []store.PageCount{
		{Path: "/quiz", Views: 40},
		{Path: "/", Views: 10},
	}}
	svc := NewService(fs)

	from := int64(1000)
	pages, err := svc.TopPages(context.Background(), Params{TrackerID: "trk_a", From: &from})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, TopPage{Path: "/quiz", Visits: 40}, pages[0])
	assert.Equal(t, &from, fs.lastFilter.From)
}

func TestDropoffPreservesNegative(t *testing.T) {
	fs := &fakeStore{dropoff: []store.DropoffBucket{
		{Bucket: "2026-03-01", Starts: 10, Completes: 4},
		{Bucket: "2026-03-02", Starts: 2, Completes: 5},
	}}
	svc := NewService(fs)

	quizID := "q1"
	buckets, err := svc.Dropoff(context.Background(), Params{TrackerID: "trk_a", GroupBy: domain.GranularityMonth}, &quizID)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, int64(6), buckets[0].Dropoff)
	// Cross-bucket completions make the subtraction negative; keep it
	assert.Equal(t, int64(-3), buckets[1].Dropoff)

	assert.Equal(t, &quizID, fs.lastFilter.QuizID)
	assert.Equal(t, domain.GranularityMonth, fs.lastGran)
}

func TestUTM(t *testing.T) {
	google := "google"
	cpc := "cpc"
	fs := &fakeStore{utm: []store.UTMGroup{
		{Source: nil, Medium: nil, Campaign: nil, Visits: 30, Starts: 12, Completes: 4},
		{Source: &google, Medium: &cpc, Campaign: nil, Visits: 20, Starts: 8, Completes: 2},
	}}
	svc := NewService(fs)

	rows, err := svc.UTM(context.Background(), Params{TrackerID: "trk_a"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Source)
	assert.Equal(t, int64(30), rows[0].Visits)
	assert.Equal(t, "google", *rows[1].Source)
}
