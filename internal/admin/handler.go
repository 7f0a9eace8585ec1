// Package admin serves the operator-only HTTP surface: on-demand syncs,
// background bulk imports, catalog curation and cache maintenance. Routes
// are expected to sit behind auth.RequireOperator.
package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/octacordshop/PrimeStream/internal/auth"
	"github.com/octacordshop/PrimeStream/internal/cache"
	"github.com/octacordshop/PrimeStream/internal/catalog"
	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/internal/hub"
	"github.com/octacordshop/PrimeStream/internal/importer"
	"github.com/octacordshop/PrimeStream/internal/tmdb"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

type Syncer interface {
	SyncPopular(ctx context.Context, kind models.Kind, page int) (catalogsync.Result, error)
	SyncByYear(ctx context.Context, kind models.Kind, year, page int) (catalogsync.Result, error)
	Refresh(ctx context.Context, pages int) (catalogsync.RefreshResult, error)
}

type Handler struct {
	Engine   Syncer
	Importer *importer.Orchestrator
	Imports  *importer.Tracker
	Catalog  *catalog.Repo
	Cache    cache.Store
	Hub      *hub.Hub
	Logger   *log.Logger

	// CacheMaxAge is the prune cutoff used when a request names none.
	CacheMaxAge time.Duration
	// RunContext bounds background imports; they outlive the request that
	// started them.
	RunContext context.Context
	Now        func() time.Time
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handler) publish(ev hub.Event) {
	if h.Hub != nil {
		h.Hub.Publish(ev)
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/popular", h.syncPopular) // POST /admin/sync/popular
	rg.POST("/sync/year", h.syncYear)       // POST /admin/sync/year
	rg.POST("/refresh", h.refresh)          // POST /admin/refresh

	rg.POST("/imports", h.startImport) // POST /admin/imports
	rg.GET("/imports", h.listImports)
	rg.GET("/imports/:id", h.getImport)

	rg.GET("/catalog", h.listCatalog)       // includes hidden rows
	rg.PATCH("/catalog/:id", h.updateFlags) // featured / visible
	rg.GET("/stats", h.stats)
	rg.POST("/cache/prune", h.pruneCache)
}

type syncReq struct {
	Kind string `json:"kind" binding:"required"`
	Year int    `json:"year"`
	Page int    `json:"page"`
}

func (h *Handler) bindSync(c *gin.Context) (syncReq, models.Kind, bool) {
	var req syncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return req, "", false
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, "", false
	}
	if req.Page == 0 {
		req.Page = 1
	}
	return req, kind, true
}

func (h *Handler) syncPopular(c *gin.Context) {
	req, kind, ok := h.bindSync(c)
	if !ok {
		return
	}
	res, err := h.Engine.SyncPopular(c.Request.Context(), kind, req.Page)
	h.publish(hub.SyncEvent("popular", res, err))
	if err != nil {
		h.logf("[admin] sync popular %s page %d: %v", kind, req.Page, err)
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) syncYear(c *gin.Context) {
	req, kind, ok := h.bindSync(c)
	if !ok {
		return
	}
	if req.Year < importer.MinYear || req.Year > h.now().Year() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	res, err := h.Engine.SyncByYear(c.Request.Context(), kind, req.Year, req.Page)
	h.publish(hub.SyncEvent("year", res, err))
	if err != nil {
		h.logf("[admin] sync year %s %d page %d: %v", kind, req.Year, req.Page, err)
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type refreshReq struct {
	Pages int `json:"pages"`
}

// refresh answers 200 with partial counts even when a kind failed; the
// failure shows up in "error". A missing or zero page count is a 400.
func (h *Handler) refresh(c *gin.Context) {
	var req refreshReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	if req.Pages < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pages must be >= 1"})
		return
	}

	res, err := h.Engine.Refresh(c.Request.Context(), req.Pages)
	if errors.Is(err, catalogsync.ErrInvalidPage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.publish(hub.RefreshEvent(res, err))
	out := gin.H{"result": res}
	if err != nil {
		h.logf("[admin] refresh: %v", err)
		out["error"] = err.Error()
	}
	c.JSON(http.StatusOK, out)
}

func writeSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidKind), errors.Is(err, catalogsync.ErrInvalidPage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tmdb.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "metadata provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
	}
}

type importReq struct {
	Kind      string `json:"kind" binding:"required"`
	StartYear int    `json:"start_year" binding:"required"`
	EndYear   int    `json:"end_year" binding:"required"`
	Confirm   bool   `json:"confirm"`
}

func (h *Handler) startImport(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := h.RunContext
	if ctx == nil {
		ctx = context.Background()
	}
	var obs importer.Observer
	if h.Hub != nil {
		obs = h.Hub.ImportObserver()
	}

	p, err := h.Imports.Start(ctx, h.Importer, importer.Request{
		Kind:      kind,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
		Confirmed: req.Confirm,
	}, obs)
	switch {
	case errors.Is(err, importer.ErrConfirmationRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{
			"error": err.Error(),
			"years": req.EndYear - req.StartYear + 1,
		})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logf("[admin] import %s started by %s: %s %d-%d", p.RunID, auth.OperatorName(c), p.Kind, p.StartYear, p.EndYear)
	c.JSON(http.StatusAccepted, gin.H{"run_id": p.RunID, "progress": p})
}

func (h *Handler) listImports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.Imports.List()})
}

func (h *Handler) getImport(c *gin.Context) {
	p, ok := h.Imports.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) listCatalog(c *gin.Context) {
	q := catalog.ListQuery{
		Q:             c.Query("q"),
		Year:          c.Query("year"),
		FeaturedOnly:  c.Query("featured") == "true" || c.Query("featured") == "1",
		IncludeHidden: true,
		Limit:         catalog.ParseInt(c.Query("limit"), 50),
		Offset:        catalog.ParseInt(c.Query("offset"), 0),
	}
	if s := c.Query("kind"); s != "" {
		kind, err := models.ParseKind(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Kind = kind
	}

	total, err := h.Catalog.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Catalog.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": q.Limit, "offset": q.Offset, "items": items})
}

type flagsReq struct {
	Featured *bool `json:"is_featured"`
	Visible  *bool `json:"is_visible"`
}

func (h *Handler) updateFlags(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req flagsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Featured == nil && req.Visible == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	it, err := h.Catalog.SetFlags(c.Request.Context(), id, req.Featured, req.Visible)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.logf("[admin] %s set flags on %d: featured=%t visible=%t", auth.OperatorName(c), it.ID, it.IsFeatured, it.IsVisible)
	c.JSON(http.StatusOK, it)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Catalog.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	out := gin.H{"catalog": st}
	if h.Hub != nil {
		out["feed"] = h.Hub.Stats()
	}
	c.JSON(http.StatusOK, out)
}

type pruneReq struct {
	OlderThan string `json:"older_than"` // Go duration, e.g. "72h"
}

func (h *Handler) pruneCache(c *gin.Context) {
	if h.Cache == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "cache disabled"})
		return
	}
	var req pruneReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	maxAge := h.CacheMaxAge
	if req.OlderThan != "" {
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid older_than"})
			return
		}
		maxAge = d
	}
	if maxAge <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "older_than required"})
		return
	}

	removed, err := h.Cache.Prune(c.Request.Context(), h.now().Add(-maxAge))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prune failed"})
		return
	}
	h.logf("[admin] %s pruned %d cache entries older than %s", auth.OperatorName(c), removed, maxAge)
	h.publish(hub.PruneEvent(removed))
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
