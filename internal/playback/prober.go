// Package playback checks whether the playback provider can serve a title.
package playback

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMovieTemplate   = "https://vidsrc.xyz/embed/movie/{id}"
	DefaultEpisodeTemplate = "https://vidsrc.xyz/embed/tv/{id}/{season}-{episode}"
)

// Target identifies a movie (Season == 0) or one episode of a series.
type Target struct {
	ExternalID string
	Season     int
	Episode    int
}

type Config struct {
	MovieTemplate   string
	EpisodeTemplate string
	Timeout         time.Duration
	UserAgent       string
}

// Prober issues HEAD requests against embed URLs. Results are never cached.
type Prober struct {
	MovieTemplate   string
	EpisodeTemplate string
	UserAgent       string
	Client          *http.Client
	Logger          *log.Logger
}

func NewProber(cfg Config) *Prober {
	if cfg.MovieTemplate == "" {
		cfg.MovieTemplate = DefaultMovieTemplate
	}
	if cfg.EpisodeTemplate == "" {
		cfg.EpisodeTemplate = DefaultEpisodeTemplate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Prober{
		MovieTemplate:   cfg.MovieTemplate,
		EpisodeTemplate: cfg.EpisodeTemplate,
		UserAgent:       cfg.UserAgent,
		Client:          &http.Client{Timeout: cfg.Timeout},
		Logger:          log.Default(),
	}
}

// URL renders the embed URL for t.
func (p *Prober) URL(t Target) string {
	tmpl := p.MovieTemplate
	if t.Season > 0 {
		tmpl = p.EpisodeTemplate
	}
	r := strings.NewReplacer(
		"{id}", url.PathEscape(t.ExternalID),
		"{season}", strconv.Itoa(t.Season),
		"{episode}", strconv.Itoa(t.Episode),
	)
	return r.Replace(tmpl)
}

// Probe reports true only for a 2xx answer. Transport errors count as
// unavailable.
func (p *Prober) Probe(ctx context.Context, t Target) bool {
	if strings.TrimSpace(t.ExternalID) == "" {
		return false
	}
	u := p.URL(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		p.logf("[probe] bad url %s: %v", u, err)
		return false
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		p.logf("[probe] %s: %v", u, err)
		return false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logf("[probe] %s: status %d", u, resp.StatusCode)
		return false
	}
	return true
}

func (p *Prober) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
