package models

import (
	"errors"
	"strings"
	"time"
)

// Kind separates the two catalog families. Values double as the
// metadata provider's path segment ("movie", "tv").
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "tv"
)

var ErrInvalidKind = errors.New("kind must be movie or tv")

// ParseKind accepts the provider spelling plus a few admin-friendly aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return KindMovie, nil
	case "tv", "series", "show", "shows", "tvshow":
		return KindSeries, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Valid() bool { return k == KindMovie || k == KindSeries }

// CatalogItem is a movie or a series as stored locally.
//
// ExternalID is the cross-provider id (IMDb "tt..." form) and is the dedup
// key together with Kind. SecondaryExternalID is the metadata provider's own
// id, kept so detail lookups don't need a search round-trip.
type CatalogItem struct {
	ID                  int64     `json:"id"`
	Kind                Kind      `json:"kind"`
	Title               string    `json:"title"`
	ExternalID          string    `json:"external_id"`
	SecondaryExternalID string    `json:"secondary_external_id,omitempty"`
	Year                string    `json:"year,omitempty"` // "2010" for movies, "2008-2013" / "2019-" for series
	PosterURL           string    `json:"poster_url,omitempty"`
	Synopsis            string    `json:"synopsis,omitempty"`
	Rating              float64   `json:"rating"`
	Genres              []string  `json:"genres"`
	Director            string    `json:"director,omitempty"` // creator for series
	Cast                []string  `json:"cast,omitempty"`
	Runtime             int       `json:"runtime,omitempty"`
	SeasonCount         int       `json:"season_count,omitempty"`
	IsFeatured          bool      `json:"is_featured"`
	IsVisible           bool      `json:"is_visible"`
	CreatedAt           time.Time `json:"created_at"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Episode belongs to exactly one series row. (SeriesID, Season, EpisodeNumber)
// is unique.
type Episode struct {
	ID            int64     `json:"id"`
	SeriesID      int64     `json:"series_id"`
	Season        int       `json:"season"`
	EpisodeNumber int       `json:"episode_number"`
	Title         string    `json:"title"`
	ExternalID    string    `json:"external_id,omitempty"`
	Synopsis      string    `json:"synopsis,omitempty"`
	StillURL      string    `json:"still_url,omitempty"`
	Runtime       int       `json:"runtime,omitempty"`
	AirDate       string    `json:"air_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}
