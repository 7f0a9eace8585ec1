package catalogsync

import (
	"fmt"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

// Outcome is the terminal state of one title.
type Outcome string

const (
	OutcomeAdded        Outcome = "added"
	OutcomeUpdated      Outcome = "updated"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeNoExternalID Outcome = "no-external-id"
	OutcomeError        Outcome = "error"
)

type EpisodeCounts struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Unavailable int `json:"unavailable"`
	Errors      int `json:"errors"`
}

// Result summarizes one sync call. Unavailable includes titles skipped for
// lacking an external id; NoExternalID breaks those out.
type Result struct {
	Kind         models.Kind   `json:"kind"`
	Page         int           `json:"page"`
	Year         int           `json:"year,omitempty"`
	Added        int           `json:"added"`
	Updated      int           `json:"updated"`
	Unavailable  int           `json:"unavailable"`
	NoExternalID int           `json:"no_external_id"`
	Errors       int           `json:"errors"`
	Total        int           `json:"total"`
	FromCache    bool          `json:"from_cache"`
	Episodes     EpisodeCounts `json:"episodes"`
}

type RefreshResult struct {
	Pages   int    `json:"pages"`
	Movies  Result `json:"movies"`
	TVShows Result `json:"tv_shows"`
}

func (r *Result) add(o Result) {
	r.Added += o.Added
	r.Updated += o.Updated
	r.Unavailable += o.Unavailable
	r.NoExternalID += o.NoExternalID
	r.Errors += o.Errors
	r.Total += o.Total
	r.FromCache = r.FromCache || o.FromCache
	r.Episodes.Added += o.Episodes.Added
	r.Episodes.Updated += o.Episodes.Updated
	r.Episodes.Unavailable += o.Episodes.Unavailable
	r.Episodes.Errors += o.Episodes.Errors
}

func (r Result) String() string {
	s := fmt.Sprintf("total=%d added=%d updated=%d unavailable=%d no_id=%d errors=%d",
		r.Total, r.Added, r.Updated, r.Unavailable, r.NoExternalID, r.Errors)
	if r.Episodes != (EpisodeCounts{}) {
		s += fmt.Sprintf(" episodes(added=%d updated=%d unavailable=%d errors=%d)",
			r.Episodes.Added, r.Episodes.Updated, r.Episodes.Unavailable, r.Episodes.Errors)
	}
	if r.FromCache {
		s += " (cached)"
	}
	return s
}
