// Package providermock serves a deterministic stand-in for the metadata
// provider's v3 API and the playback provider's embed pages, so the sync
// pipeline can run end to end without network access.
//
// Every title is derived from its numeric id: discovery pages for year Y
// hold ids Y*100+1 and up, ids ending in 5 have no IMDb mapping, and
// IMDb ids ending in 3 are not playable. Series have 1 + id%3 seasons of
// EpisodesPerSeason episodes.
package providermock

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	PageSize          = 5
	TotalPages        = 3
	EpisodesPerSeason = 3
	popularYear       = 2024
)

type Server struct {
	// APIKey, when set, must be passed as ?api_key=.
	APIKey string
}

// Router mounts the metadata API under /3 and embed pages under /embed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/3")
	api.Use(s.requireKey)
	api.GET("/configuration", s.configuration)
	api.GET("/discover/movie", s.discover("movie"))
	api.GET("/discover/tv", s.discover("tv"))
	api.GET("/movie/:id", s.title("movie"))
	api.GET("/tv/:id", s.title("tv"))
	api.GET("/tv/:id/season/:season", s.season)

	r.HEAD("/embed/movie/:ext", s.embed)
	r.HEAD("/embed/tv/:ext/:episode", s.embed)
	r.GET("/embed/movie/:ext", s.embed)
	r.GET("/embed/tv/:ext/:episode", s.embed)
	return r
}

func (s *Server) requireKey(c *gin.Context) {
	if s.APIKey != "" && c.Query("api_key") != s.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status_code": 7, "status_message": "Invalid API key"})
		return
	}
	c.Next()
}

func (s *Server) configuration(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"images": gin.H{"secure_base_url": "https://image.example.test/t/p/"},
	})
}

// ExternalID is the IMDb id the mock reports for providerID, or "" when
// the title has none.
func ExternalID(providerID int) string {
	if providerID%10 == 5 {
		return ""
	}
	return fmt.Sprintf("tt%07d", providerID)
}

// Playable reports whether the embed page for externalID answers 200.
func Playable(externalID string) bool {
	return externalID != "" && !strings.HasSuffix(externalID, "3")
}

func SeasonCount(providerID int) int { return 1 + providerID%3 }

func yearOf(providerID int) int { return providerID / 100 }

func rating(providerID int) float64 { return float64(providerID%50) / 5 }

func name(kind string, id int) string {
	if kind == "tv" {
		return fmt.Sprintf("Series %d", id)
	}
	return fmt.Sprintf("Movie %d", id)
}

func listResults(kind string, year, page int) []gin.H {
	out := []gin.H{}
	if page < 1 || page > TotalPages {
		return out
	}
	for i := 0; i < PageSize; i++ {
		id := year*100 + (page-1)*PageSize + i + 1
		r := gin.H{
			"id":           id,
			"overview":     "Synthetic " + kind + " title.",
			"poster_path":  fmt.Sprintf("/p%d.jpg", id),
			"vote_average": rating(id),
		}
		date := fmt.Sprintf("%d-06-01", year)
		if kind == "tv" {
			r["name"], r["first_air_date"] = name(kind, id), date
		} else {
			r["title"], r["release_date"] = name(kind, id), date
		}
		out = append(out, r)
	}
	return out
}

func listBody(kind string, year, page int) gin.H {
	return gin.H{
		"page":          page,
		"total_pages":   TotalPages,
		"total_results": TotalPages * PageSize,
		"results":       listResults(kind, year, page),
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func (s *Server) discover(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		yearKey := "primary_release_year"
		if kind == "tv" {
			yearKey = "first_air_date_year"
		}
		year := queryInt(c, yearKey, 0)
		if year <= 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"status_message": "year required"})
			return
		}
		c.JSON(http.StatusOK, listBody(kind, year, queryInt(c, "page", 1)))
	}
}

func (s *Server) title(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("id") == "popular" {
			c.JSON(http.StatusOK, listBody(kind, popularYear, queryInt(c, "page", 1)))
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"status_code": 34, "status_message": "not found"})
			return
		}
		c.JSON(http.StatusOK, detail(kind, id))
	}
}

func detail(kind string, id int) gin.H {
	year := yearOf(id)
	d := gin.H{
		"id":           id,
		"overview":     "Synthetic " + kind + " title.",
		"poster_path":  fmt.Sprintf("/p%d.jpg", id),
		"vote_average": rating(id),
		"genres":       []gin.H{{"name": "Drama"}, {"name": "Mystery"}},
		"credits": gin.H{
			"cast": []gin.H{
				{"name": "Lead Actor", "order": 0},
				{"name": "Second Lead", "order": 1},
			},
			"crew": []gin.H{{"name": "Some Director", "job": "Director"}},
		},
		"external_ids": gin.H{"imdb_id": ExternalID(id)},
	}
	if kind == "tv" {
		d["name"] = name(kind, id)
		d["first_air_date"] = fmt.Sprintf("%d-06-01", year)
		d["last_air_date"] = fmt.Sprintf("%d-06-01", year+SeasonCount(id)-1)
		d["status"] = "Ended"
		d["number_of_seasons"] = SeasonCount(id)
		d["episode_run_time"] = []int{45}
		d["created_by"] = []gin.H{{"name": "Show Creator"}}
	} else {
		d["title"] = name(kind, id)
		d["release_date"] = fmt.Sprintf("%d-06-01", year)
		d["runtime"] = 90 + id%60
		d["imdb_id"] = ExternalID(id)
	}
	return d
}

func (s *Server) season(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"status_message": "not found"})
		return
	}
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season < 1 || season > SeasonCount(id) {
		c.JSON(http.StatusNotFound, gin.H{"status_message": "season not found"})
		return
	}

	eps := make([]gin.H, 0, EpisodesPerSeason)
	for n := 1; n <= EpisodesPerSeason; n++ {
		eps = append(eps, gin.H{
			"id":             id*1000 + season*10 + n,
			"episode_number": n,
			"name":           fmt.Sprintf("S%02dE%02d", season, n),
			"overview":       "",
			"air_date":       fmt.Sprintf("%d-%02d-01", yearOf(id)+season-1, n),
			"still_path":     fmt.Sprintf("/s%d_%d_%d.jpg", id, season, n),
			"runtime":        45,
		})
	}
	c.JSON(http.StatusOK, gin.H{"season_number": season, "episodes": eps})
}

func (s *Server) embed(c *gin.Context) {
	if !Playable(c.Param("ext")) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}
