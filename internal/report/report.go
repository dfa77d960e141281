// Package report renders tracker statistics into exportable documents: a
// monospaced plain-text report, an HTML-to-PDF document and a leads CSV.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/stats"
	"github.com/crivus/quiziq/internal/store/schema"
)

// Section names accepted in export requests.
const (
	SectionOverview = "overview"
	SectionTopPages = "top-pages"
	SectionDropoff  = "dropoff"
	SectionUTM      = "utm"
)

// Stats is the aggregation surface the report service reads from.
type Stats interface {
	Overview(ctx context.Context, params stats.Params) (*stats.Overview, error)
	TopPages(ctx context.Context, params stats.Params) ([]stats.TopPage, error)
	Dropoff(ctx context.Context, params stats.Params, quizID *string) ([]stats.DropoffBucket, error)
	UTM(ctx context.Context, params stats.Params) ([]stats.UTMRow, error)
}

// TrackerStore resolves tracker metadata for the report header.
type TrackerStore interface {
	GetTrackerByTrackerID(ctx context.Context, trackerID string) (*schema.Tracker, error)
}

// Params selects the report content: a tracker, a time range, the bucketing
// granularity, which sections to include and the date locale of the header.
type Params struct {
	TrackerID string
	From      *int64
	To        *int64
	GroupBy   domain.Granularity
	Sections  []string
	Locale    string
}

// data is the fully resolved input of a renderer. Nil section pointers mean
// the section was not requested.
type data struct {
	Tracker     *schema.Tracker
	Period      string
	Granularity domain.Granularity

	Overview *stats.Overview
	TopPages []stats.TopPage
	Dropoff  []stats.DropoffBucket
	UTM      []stats.UTMRow

	HasTopPages bool
	HasDropoff  bool
	HasUTM      bool
}

// Service assembles report data and renders it. It has no state beyond its
// collaborators; rendering itself is pure.
type Service struct {
	stats    Stats
	store    TrackerStore
	renderer adapter.DocumentRenderer
}

// NewService creates a new report service
func NewService(statsService Stats, store TrackerStore, renderer adapter.DocumentRenderer) *Service {
	return &Service{
		stats:    statsService,
		store:    store,
		renderer: renderer,
	}
}

// GenerateTXT renders the plain-text report for the selected sections.
func (s *Service) GenerateTXT(ctx context.Context, params Params) (string, error) {
	d, err := s.gather(ctx, params)
	if err != nil {
		return "", err
	}
	return renderTXT(d), nil
}

// GeneratePDF renders the report as HTML and hands it to the external
// document renderer.
func (s *Service) GeneratePDF(ctx context.Context, params Params) ([]byte, error) {
	d, err := s.gather(ctx, params)
	if err != nil {
		return nil, err
	}

	html, err := renderHTML(d)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPDF(ctx, html)
}

func (s *Service) gather(ctx context.Context, params Params) (*data, error) {
	tracker, err := s.store.GetTrackerByTrackerID(ctx, params.TrackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, domain.NewNotFoundError("tracker")
	}

	granularity := params.GroupBy
	if granularity == "" {
		granularity = domain.GranularityDay
	}
	if !granularity.Valid() {
		return nil, domain.NewValidationError("groupBy must be day, month or year")
	}

	sections := params.Sections
	if len(sections) == 0 {
		sections = []string{SectionOverview, SectionTopPages, SectionDropoff, SectionUTM}
	}
	requested := map[string]bool{}
	for _, section := range sections {
		requested[section] = true
	}

	d := &data{
		Tracker:     tracker,
		Period:      formatPeriod(params.From, params.To, params.Locale),
		Granularity: granularity,
	}

	statsParams := stats.Params{
		TrackerID: params.TrackerID,
		From:      params.From,
		To:        params.To,
		GroupBy:   granularity,
	}

	if requested[SectionOverview] {
		if d.Overview, err = s.stats.Overview(ctx, statsParams); err != nil {
			return nil, err
		}
	}
	if requested[SectionTopPages] {
		if d.TopPages, err = s.stats.TopPages(ctx, statsParams); err != nil {
			return nil, err
		}
		d.HasTopPages = true
	}
	if requested[SectionDropoff] {
		if d.Dropoff, err = s.stats.Dropoff(ctx, statsParams, nil); err != nil {
			return nil, err
		}
		d.HasDropoff = true
	}
	if requested[SectionUTM] {
		if d.UTM, err = s.stats.UTM(ctx, statsParams); err != nil {
			return nil, err
		}
		d.HasUTM = true
	}

	return d, nil
}

// formatPeriod renders the report time range header. Both bounds must be set
// for a concrete range; anything else reads as all time.
func formatPeriod(from, to *int64, locale string) string {
	if from == nil || to == nil {
		return "All time"
	}
	return formatDate(*from, locale) + " - " + formatDate(*to, locale)
}

func formatDate(ms int64, locale string) string {
	t := time.UnixMilli(ms).UTC()
	switch {
	case locale == "" || locale == "pt" || len(locale) > 2 && locale[:2] == "pt":
		return t.Format("02/01/2006")
	case locale == "en" || len(locale) > 2 && locale[:2] == "en":
		return t.Format("01/02/2006")
	default:
		return t.Format("2006-01-02")
	}
}

// ReportFilename builds the suggested download name of a PDF or TXT export.
func ReportFilename(trackerID, ext string, now time.Time) string {
	return fmt.Sprintf("report-%s-%d.%s", trackerID, now.UnixMilli(), ext)
}

// LeadsFilename builds the suggested download name of a leads CSV export.
func LeadsFilename(trackerID string, now time.Time) string {
	return fmt.Sprintf("leads-%s-%d.csv", trackerID, now.UnixMilli())
}
