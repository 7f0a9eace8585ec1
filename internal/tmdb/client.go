// Package tmdb talks to a TMDB v3 compatible metadata provider.
//
// Listing calls (discovery by year, popular) are read through a cache.Store
// and served from it while the entry is fresh for the endpoint's TTL. Detail
// calls always go to the network. The client never retries; callers decide.
package tmdb

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/octacordshop/PrimeStream/internal/cache"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

const provider = "tmdb"

// Cache is the subset of cache.Store the client reads through.
type Cache interface {
	Get(ctx context.Context, signature string) (*models.CacheEntry, error)
	Put(ctx context.Context, signature string, payload []byte) (*models.CacheEntry, error)
}

type Config struct {
	BaseURL      string
	APIKey       string
	ImageBaseURL string
	Language     string

	// RequestsPerSecond <= 0 disables pacing.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration

	PopularTTL  time.Duration
	DiscoverTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.themoviedb.org/3",
		ImageBaseURL:      "https://image.tmdb.org/t/p",
		Language:          "en-US",
		RequestsPerSecond: 4,
		Burst:             4,
		Timeout:           15 * time.Second,
		PopularTTL:        time.Hour,
		DiscoverTTL:       24 * time.Hour,
	}
}

type Client struct {
	BaseURL      string
	APIKey       string
	ImageBaseURL string
	Language     string
	PopularTTL   time.Duration
	DiscoverTTL  time.Duration

	HTTP    *http.Client
	Cache   Cache
	Limiter *rate.Limiter
	Logger  *log.Logger
	Now     func() time.Time
}

func NewClient(cfg Config, c Cache) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:       cfg.APIKey,
		ImageBaseURL: cfg.ImageBaseURL,
		Language:     cfg.Language,
		PopularTTL:   cfg.PopularTTL,
		DiscoverTTL:  cfg.DiscoverTTL,
		HTTP:         &http.Client{Timeout: timeout},
		Cache:        c,
		Limiter:      limiter,
		Logger:       log.Default(),
		Now:          time.Now,
	}
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// DiscoverByYear lists titles first released (or first aired) in year,
// most popular first.
func (c *Client) DiscoverByYear(ctx context.Context, kind models.Kind, year, page int) (*ListPage, error) {
	if !kind.Valid() {
		return nil, models.ErrInvalidKind
	}
	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	params.Set("page", strconv.Itoa(pageOrFirst(page)))
	if kind == models.KindSeries {
		params.Set("first_air_date_year", strconv.Itoa(year))
	} else {
		params.Set("primary_release_year", strconv.Itoa(year))
	}
	return c.listing(ctx, "discover/"+string(kind), params, c.DiscoverTTL)
}

// Popular lists the provider's current popular titles of kind.
func (c *Client) Popular(ctx context.Context, kind models.Kind, page int) (*ListPage, error) {
	if !kind.Valid() {
		return nil, models.ErrInvalidKind
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(pageOrFirst(page)))
	return c.listing(ctx, string(kind)+"/popular", params, c.PopularTTL)
}

// TitleDetail fetches credits and external ids along with the title.
func (c *Client) TitleDetail(ctx context.Context, kind models.Kind, providerID int) (*TitleDetail, error) {
	if !kind.Valid() {
		return nil, models.ErrInvalidKind
	}
	params := url.Values{}
	params.Set("append_to_response", "credits,external_ids")
	raw, err := c.get(ctx, fmt.Sprintf("%s/%d", kind, providerID), params)
	if err != nil {
		return nil, err
	}
	return parseTitleDetail(kind, raw, c.ImageBaseURL)
}

func (c *Client) SeasonDetail(ctx context.Context, providerID, season int) (*SeasonDetail, error) {
	raw, err := c.get(ctx, fmt.Sprintf("tv/%d/season/%d", providerID, season), nil)
	if err != nil {
		return nil, err
	}
	return parseSeasonDetail(raw, c.ImageBaseURL)
}

// Ping checks the provider is reachable and the API key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "configuration", nil)
	return err
}

func (c *Client) listing(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) (*ListPage, error) {
	sig := cache.Signature(provider, endpoint, params)

	if c.Cache != nil {
		entry, err := c.Cache.Get(ctx, sig)
		if err != nil {
			return nil, err
		}
		if cache.Fresh(entry, ttl, c.now()) {
			page, err := parseListPage(entry.Payload)
			if err == nil {
				page.FromCache = true
				return page, nil
			}
			c.logf("[tmdb] ignoring unreadable cache entry %s: %v", sig, err)
		}
	}

	raw, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	page, err := parseListPage(raw)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if _, err := c.Cache.Put(ctx, sig, raw); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, &UnavailableError{Op: endpoint, Err: err}
		}
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	if c.APIKey != "" {
		q.Set("api_key", c.APIKey)
	}
	if c.Language != "" && q.Get("language") == "" {
		q.Set("language", c.Language)
	}
	u := c.BaseURL + "/" + endpoint
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UnavailableError{Op: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &UnavailableError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UnavailableError{
			Op:         endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Op: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	return raw, nil
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
