package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/api/apierrors"
	"github.com/crivus/quiziq/internal/api/middleware"
	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/ingest"
	"github.com/crivus/quiziq/internal/policy"
	"github.com/crivus/quiziq/internal/registry"
	"github.com/crivus/quiziq/internal/report"
	"github.com/crivus/quiziq/internal/stats"
	"github.com/crivus/quiziq/internal/store"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// Collect ingests a single behavioral event from the embedded snippet (open, no authentication required)
	// POST /api/v1/collect
	Collect(c *gin.Context)

	// GetOverview returns funnel totals, rates and a bucketed timeseries for one tracker
	// GET /api/v1/stats/overview?tracker_id=<id>&from=<ms>&to=<ms>&groupBy=<day|month|year>
	GetOverview(c *gin.Context)

	// GetTopPages returns the most viewed paths for one tracker
	// GET /api/v1/stats/top-pages?tracker_id=<id>&from=<ms>&to=<ms>
	GetTopPages(c *gin.Context)

	// GetDropoff returns the per-bucket quiz start/complete gap for one tracker
	// GET /api/v1/stats/dropoff?tracker_id=<id>&from=<ms>&to=<ms>&groupBy=<day|month|year>&quiz_id=<id>
	GetDropoff(c *gin.Context)

	// GetUTM returns per-campaign funnel counts for one tracker
	// GET /api/v1/stats/utm?tracker_id=<id>&from=<ms>&to=<ms>
	GetUTM(c *gin.Context)

	// ListTrackers retrieves the trackers visible to the caller
	// GET /api/v1/trackers
	ListTrackers(c *gin.Context)

	// CreateTracker registers a new tracker for the caller's site
	// POST /api/v1/trackers
	CreateTracker(c *gin.Context)

	// GetTracker retrieves a single tracker by its external id
	// GET /api/v1/trackers/:id
	GetTracker(c *gin.Context)

	// UpdateTracker applies a partial update to a tracker
	// PATCH /api/v1/trackers/:id
	UpdateTracker(c *gin.Context)

	// DeleteTracker removes a tracker and its collected data
	// DELETE /api/v1/trackers/:id
	DeleteTracker(c *gin.Context)

	// RevokeTracker terminally revokes a tracker's collection credentials
	// POST /api/v1/trackers/:id/revoke
	RevokeTracker(c *gin.Context)

	// ListLeads retrieves a page of captured leads for one tracker
	// GET /api/v1/leads/list?tracker_id=<id>&from=<ms>&to=<ms>&page=<n>&limit=<n>&search=<text>
	ListLeads(c *gin.Context)

	// ExportLeadsCSV streams every matching lead as a CSV attachment
	// GET /api/v1/leads/export?tracker_id=<id>&from=<ms>&to=<ms>
	ExportLeadsCSV(c *gin.Context)

	// ExportPDF renders the selected report sections as a PDF attachment
	// POST /api/v1/export/pdf
	ExportPDF(c *gin.Context)

	// ExportTXT renders the selected report sections as a plain-text attachment
	// POST /api/v1/export/txt
	ExportTXT(c *gin.Context)

	// GetPolicy retrieves the platform policy (admin only)
	// GET /api/v1/policies
	GetPolicy(c *gin.Context)

	// UpdatePolicy applies a partial update to the platform policy (admin only)
	// PATCH /api/v1/policies
	UpdatePolicy(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	pipeline *ingest.Pipeline
	registry *registry.Service
	stats    *stats.Service
	reports  *report.Service
	policies *policy.Service
	store    store.Store
	clock    adapter.Clock
}

// NewHandler creates a new REST API handler
func NewHandler(
	pipeline *ingest.Pipeline,
	reg *registry.Service,
	statsSvc *stats.Service,
	reports *report.Service,
	policies *policy.Service,
	s store.Store,
	clock adapter.Clock,
) Handler {
	return &handler{
		pipeline: pipeline,
		registry: reg,
		stats:    statsSvc,
		reports:  reports,
		policies: policies,
		store:    s,
		clock:    clock,
	}
}

// principal extracts the authenticated principal set by the auth middleware.
// A missing principal on a protected route is a wiring error, answered 401.
func (h *handler) principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return domain.Principal{}, false
	}
	return p, true
}

// requireTrackerAccess answers 403 unless the principal may read the tracker's
// collected data.
func (h *handler) requireTrackerAccess(c *gin.Context, p domain.Principal, trackerID string) bool {
	ok, err := h.registry.CanAccess(c.Request.Context(), p, trackerID)
	if err != nil {
		respondServiceError(c, err)
		return false
	}
	if !ok {
		respondForbidden(c, "You do not have access to this tracker")
		return false
	}
	return true
}

// Collect ingests a single behavioral event from the embedded snippet
func (h *handler) Collect(c *gin.Context) {
	var input ingest.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "Invalid event payload", err.Error())
		return
	}

	if err := h.pipeline.Collect(c.Request.Context(), input, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetOverview returns funnel totals, rates and a bucketed timeseries
func (h *handler) GetOverview(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query statsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	overview, err := h.stats.Overview(c.Request.Context(), query.params())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetTopPages returns the most viewed paths
func (h *handler) GetTopPages(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query statsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	pages, err := h.stats.TopPages(c.Request.Context(), query.params())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// GetDropoff returns the per-bucket quiz start/complete gap
func (h *handler) GetDropoff(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query dropoffQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	buckets, err := h.stats.Dropoff(c.Request.Context(), query.params(), query.QuizID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dropoff": buckets})
}

// GetUTM returns per-campaign funnel counts
func (h *handler) GetUTM(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query statsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	rows, err := h.stats.UTM(c.Request.Context(), query.params())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"utm": rows})
}

// ListTrackers retrieves the trackers visible to the caller
func (h *handler) ListTrackers(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	trackers, err := h.registry.List(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trackers": toTrackerResponses(trackers)})
}

// CreateTracker registers a new tracker for the caller's site
func (h *handler) CreateTracker(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req createTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	tracker, err := h.registry.Create(c.Request.Context(), p, registry.CreateInput{
		Name:    req.Name,
		SiteURL: req.SiteURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTrackerResponse(tracker))
}

// GetTracker retrieves a single tracker by its external id
func (h *handler) GetTracker(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	tracker, err := h.registry.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTrackerResponse(tracker))
}

// UpdateTracker applies a partial update to a tracker
func (h *handler) UpdateTracker(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req updateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	tracker, err := h.registry.Update(c.Request.Context(), p, c.Param("id"), registry.UpdateInput{
		Name:    req.Name,
		SiteURL: req.SiteURL,
		Origins: req.Origins,
		Active:  req.Active,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTrackerResponse(tracker))
}

// DeleteTracker removes a tracker and its collected data
func (h *handler) DeleteTracker(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.registry.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RevokeTracker terminally revokes a tracker's collection credentials
func (h *handler) RevokeTracker(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	tracker, err := h.registry.Revoke(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTrackerResponse(tracker))
}

// ListLeads retrieves a page of captured leads
func (h *handler) ListLeads(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query leadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	leads, total, err := h.store.ListLeads(c.Request.Context(), store.LeadFilter{
		TrackerID: query.TrackerID,
		From:      query.From,
		To:        query.To,
		Search:    query.Search,
		Limit:     query.Limit,
		Offset:    (query.Page - 1) * query.Limit,
	})
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leads": toLeadResponses(leads),
		"pagination": paginationResponse{
			Page:  query.Page,
			Limit: query.Limit,
			Total: total,
		},
	})
}

// ExportLeadsCSV streams every matching lead as a CSV attachment
func (h *handler) ExportLeadsCSV(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var query leadsExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	if !h.requireTrackerAccess(c, p, query.TrackerID) {
		return
	}

	leads, err := h.store.AllLeads(c.Request.Context(), store.LeadFilter{
		TrackerID: query.TrackerID,
		From:      query.From,
		To:        query.To,
	})
	if err != nil {
		respondInternalError(c, err)
		return
	}

	filename := report.LeadsFilename(query.TrackerID, h.clock.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(report.LeadsCSV(leads)))
}

func (h *handler) exportParams(c *gin.Context) (report.Params, bool) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return report.Params{}, false
	}

	p, ok := h.principal(c)
	if !ok {
		return report.Params{}, false
	}
	if !h.requireTrackerAccess(c, p, req.TrackerID) {
		return report.Params{}, false
	}

	return report.Params{
		TrackerID: req.TrackerID,
		From:      req.From,
		To:        req.To,
		GroupBy:   domain.Granularity(req.GroupBy),
		Sections:  req.Sections,
		Locale:    req.Locale,
	}, true
}

// ExportPDF renders the selected report sections as a PDF attachment
func (h *handler) ExportPDF(c *gin.Context) {
	params, ok := h.exportParams(c)
	if !ok {
		return
	}

	pdf, err := h.reports.GeneratePDF(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := report.ReportFilename(params.TrackerID, "pdf", h.clock.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ExportTXT renders the selected report sections as a plain-text attachment
func (h *handler) ExportTXT(c *gin.Context) {
	params, ok := h.exportParams(c)
	if !ok {
		return
	}

	txt, err := h.reports.GenerateTXT(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := report.ReportFilename(params.TrackerID, "txt", h.clock.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(txt))
}

// GetPolicy retrieves the platform policy
func (h *handler) GetPolicy(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		respondForbidden(c, "Admin access required")
		return
	}

	pol, err := h.policies.Get(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPolicyResponse(pol))
}

// UpdatePolicy applies a partial update to the platform policy
func (h *handler) UpdatePolicy(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		respondForbidden(c, "Admin access required")
		return
	}

	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	pol, err := h.policies.Update(c.Request.Context(), policy.UpdateInput{
		MaxTrackersPerUser:     req.MaxTrackersPerUser,
		MaxCollectRPSPerOrigin: req.MaxCollectRPSPerOrigin,
		RetentionDays:          req.RetentionDays,
		AllowedOrigins:         req.AllowedOrigins,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPolicyResponse(pol))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "quiziq-api",
	})
}
