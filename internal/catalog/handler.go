package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                  // GET /catalog
	rg.GET("/:id", h.getByID)           // GET /catalog/:id
	rg.GET("/:id/episodes", h.episodes) // GET /catalog/:id/episodes?season=1
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:            c.Query("q"),
		Year:         c.Query("year"),
		FeaturedOnly: c.Query("featured") == "true" || c.Query("featured") == "1",
		Limit:        ParseInt(c.Query("limit"), 20),
		Offset:       ParseInt(c.Query("offset"), 0),
	}
	if s := c.Query("kind"); s != "" {
		kind, err := models.ParseKind(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Kind = kind
	}

	// genres=Action,Drama OR genres=Action&genres=Drama
	genres := c.QueryArray("genres")
	if len(genres) == 1 && strings.Contains(genres[0], ",") {
		genres = strings.Split(genres[0], ",")
	}
	q.Genres = genres

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

// visibleItem loads :id and writes the error response itself when the item
// is missing or hidden.
func (h *Handler) visibleItem(c *gin.Context) *models.CatalogItem {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil
	}
	it, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil
	}
	if it == nil || !it.IsVisible {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil
	}
	return it
}

func (h *Handler) getByID(c *gin.Context) {
	it := h.visibleItem(c)
	if it == nil {
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) episodes(c *gin.Context) {
	it := h.visibleItem(c)
	if it == nil {
		return
	}
	if it.Kind != models.KindSeries {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a series"})
		return
	}

	eps, err := h.Repo.ListEpisodes(c.Request.Context(), it.ID, ParseInt(c.Query("season"), 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list episodes failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"series_id": it.ID,
		"episodes":  eps,
	})
}

// ParseInt falls back to def on empty or non-numeric input.
func ParseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
