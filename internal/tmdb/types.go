package tmdb

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

const maxCast = 5

// ListPage is one page of a discovery or popular listing.
type ListPage struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []ListEntry `json:"results"`

	// FromCache is set when the page was served from a fresh cache entry.
	FromCache bool `json:"-"`
}

type ListEntry struct {
	ProviderID int     `json:"provider_id"`
	Title      string  `json:"title"`
	Year       string  `json:"year,omitempty"`
	Overview   string  `json:"overview,omitempty"`
	PosterPath string  `json:"poster_path,omitempty"`
	Rating     float64 `json:"rating"`
}

// TitleDetail is the full record for one movie or series.
// ExternalID is empty when the provider has no IMDb mapping.
type TitleDetail struct {
	Kind        models.Kind
	ProviderID  int
	ExternalID  string
	Title       string
	Year        string
	Overview    string
	PosterURL   string
	Rating      float64
	Genres      []string
	Director    string
	Cast        []string
	Runtime     int
	SeasonCount int
}

type SeasonDetail struct {
	SeasonNumber int
	Episodes     []EpisodeEntry
}

type EpisodeEntry struct {
	ProviderID    int
	EpisodeNumber int
	Title         string
	Overview      string
	AirDate       string
	StillURL      string
	Runtime       int
}

type listWire struct {
	Page         *int `json:"page"`
	TotalPages   int  `json:"total_pages"`
	TotalResults int  `json:"total_results"`
	Results      *[]struct {
		ID           int     `json:"id"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		VoteAverage  float64 `json:"vote_average"`
	} `json:"results"`
}

func parseListPage(raw []byte) (*ListPage, error) {
	var w listWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("list page: %v", err)
	}
	if w.Page == nil || w.Results == nil {
		return nil, malformed("list page: missing page or results")
	}

	out := &ListPage{
		Page:         *w.Page,
		TotalPages:   w.TotalPages,
		TotalResults: w.TotalResults,
		Results:      make([]ListEntry, 0, len(*w.Results)),
	}
	for i, r := range *w.Results {
		if r.ID <= 0 {
			return nil, malformed("list page: result %d has no id", i)
		}
		title := r.Title
		if title == "" {
			title = r.Name
		}
		date := r.ReleaseDate
		if date == "" {
			date = r.FirstAirDate
		}
		out.Results = append(out.Results, ListEntry{
			ProviderID: r.ID,
			Title:      strings.TrimSpace(title),
			Year:       yearOf(date),
			Overview:   r.Overview,
			PosterPath: r.PosterPath,
			Rating:     r.VoteAverage,
		})
	}
	return out, nil
}

type detailWire struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	Name            string  `json:"name"`
	ImdbID          string  `json:"imdb_id"`
	Overview        string  `json:"overview"`
	PosterPath      string  `json:"poster_path"`
	VoteAverage     float64 `json:"vote_average"`
	ReleaseDate     string  `json:"release_date"`
	FirstAirDate    string  `json:"first_air_date"`
	LastAirDate     string  `json:"last_air_date"`
	Status          string  `json:"status"`
	InProduction    bool    `json:"in_production"`
	Runtime         int     `json:"runtime"`
	EpisodeRunTime  []int   `json:"episode_run_time"`
	NumberOfSeasons int     `json:"number_of_seasons"`
	Genres          []struct {
		Name string `json:"name"`
	} `json:"genres"`
	CreatedBy []struct {
		Name string `json:"name"`
	} `json:"created_by"`
	Credits *struct {
		Cast []struct {
			Name  string `json:"name"`
			Order int    `json:"order"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	ExternalIDs *struct {
		ImdbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

func parseTitleDetail(kind models.Kind, raw []byte, imageBase string) (*TitleDetail, error) {
	var w detailWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("title detail: %v", err)
	}
	if w.ID <= 0 {
		return nil, malformed("title detail: missing id")
	}
	title := strings.TrimSpace(w.Title)
	if title == "" {
		title = strings.TrimSpace(w.Name)
	}
	if title == "" {
		return nil, malformed("title detail %d: missing title", w.ID)
	}

	d := &TitleDetail{
		Kind:       kind,
		ProviderID: w.ID,
		Title:      title,
		Overview:   w.Overview,
		PosterURL:  imageURL(imageBase, "w500", w.PosterPath),
		Rating:     w.VoteAverage,
	}

	d.ExternalID = strings.TrimSpace(w.ImdbID)
	if d.ExternalID == "" && w.ExternalIDs != nil {
		d.ExternalID = strings.TrimSpace(w.ExternalIDs.ImdbID)
	}

	for _, g := range w.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			d.Genres = append(d.Genres, name)
		}
	}

	if w.Credits != nil {
		cast := w.Credits.Cast
		sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
		for _, c := range cast {
			if len(d.Cast) == maxCast {
				break
			}
			if name := strings.TrimSpace(c.Name); name != "" {
				d.Cast = append(d.Cast, name)
			}
		}
	}

	switch kind {
	case models.KindSeries:
		d.Year = seriesYears(w.FirstAirDate, w.LastAirDate, w.Status, w.InProduction)
		d.SeasonCount = w.NumberOfSeasons
		if len(w.EpisodeRunTime) > 0 {
			d.Runtime = w.EpisodeRunTime[0]
		}
		var creators []string
		for _, c := range w.CreatedBy {
			if name := strings.TrimSpace(c.Name); name != "" {
				creators = append(creators, name)
			}
		}
		d.Director = strings.Join(creators, ", ")
	default:
		d.Year = yearOf(w.ReleaseDate)
		d.Runtime = w.Runtime
		if w.Credits != nil {
			for _, c := range w.Credits.Crew {
				if c.Job == "Director" {
					d.Director = strings.TrimSpace(c.Name)
					break
				}
			}
		}
	}
	return d, nil
}

type seasonWire struct {
	SeasonNumber *int `json:"season_number"`
	Episodes     *[]struct {
		ID            int    `json:"id"`
		EpisodeNumber int    `json:"episode_number"`
		Name          string `json:"name"`
		Overview      string `json:"overview"`
		AirDate       string `json:"air_date"`
		StillPath     string `json:"still_path"`
		Runtime       *int   `json:"runtime"`
	} `json:"episodes"`
}

func parseSeasonDetail(raw []byte, imageBase string) (*SeasonDetail, error) {
	var w seasonWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("season detail: %v", err)
	}
	if w.SeasonNumber == nil || w.Episodes == nil {
		return nil, malformed("season detail: missing season_number or episodes")
	}

	out := &SeasonDetail{
		SeasonNumber: *w.SeasonNumber,
		Episodes:     make([]EpisodeEntry, 0, len(*w.Episodes)),
	}
	for i, e := range *w.Episodes {
		if e.EpisodeNumber <= 0 {
			return nil, malformed("season %d: episode %d has no number", out.SeasonNumber, i)
		}
		ep := EpisodeEntry{
			ProviderID:    e.ID,
			EpisodeNumber: e.EpisodeNumber,
			Title:         strings.TrimSpace(e.Name),
			Overview:      e.Overview,
			AirDate:       e.AirDate,
			StillURL:      imageURL(imageBase, "w300", e.StillPath),
		}
		if ep.Title == "" {
			ep.Title = "Episode " + strconv.Itoa(e.EpisodeNumber)
		}
		if e.Runtime != nil {
			ep.Runtime = *e.Runtime
		}
		out.Episodes = append(out.Episodes, ep)
	}
	return out, nil
}

// yearOf takes the leading year of a YYYY-MM-DD date.
func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}

// seriesYears renders "2019-" for running shows, "2008-2013" for ended ones.
func seriesYears(first, last, status string, inProduction bool) string {
	start := yearOf(first)
	if start == "" {
		return ""
	}
	if inProduction || strings.EqualFold(status, "Returning Series") {
		return start + "-"
	}
	end := yearOf(last)
	if end == "" || end == start {
		return start
	}
	return start + "-" + end
}

func imageURL(base, size, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + size + "/" + strings.TrimLeft(path, "/")
}
