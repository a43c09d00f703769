package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"moodreel/internal/taxonomy"
)

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Keyword is a TMDB keyword entry.
type Keyword struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Details models the TMDB movie details payload with keywords appended.
type Details struct {
	ID          int64   `json:"id"`
	IMDBID      string  `json:"imdb_id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
	Genres      []Genre `json:"genres"`
	Keywords    struct {
		Keywords []Keyword `json:"keywords"`
	} `json:"keywords"`
}

// Year extracts the release year, or 0 when the date is missing.
func (d Details) Year() int {
	if len(d.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(d.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// Movie converts the payload into a catalog movie.
func (d Details) Movie() taxonomy.Movie {
	movie := taxonomy.Movie{
		TMDBID:      d.ID,
		Title:       strings.TrimSpace(d.Title),
		Year:        d.Year(),
		Synopsis:    strings.TrimSpace(d.Overview),
		VoteAverage: d.VoteAverage,
	}
	for _, g := range d.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			movie.Genres = append(movie.Genres, name)
		}
	}
	for _, k := range d.Keywords.Keywords {
		if name := strings.TrimSpace(k.Name); name != "" {
			movie.Keywords = append(movie.Keywords, name)
		}
	}
	return movie
}

// Fetcher is the TMDB surface used by movie intake and curation.
type Fetcher interface {
	GetMovie(ctx context.Context, tmdbID int64) (*Details, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit caps requests per second. Non-positive disables throttling.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// StatusError reports a non-200 TMDB response.
type StatusError struct {
	StatusCode int
	Latency    time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb movie details returned %d (latency=%v)", e.StatusCode, e.Latency)
}

// NotFound reports whether the movie does not exist.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// GetMovie fetches details and keywords for a TMDB movie id.
func (c *Client) GetMovie(ctx context.Context, tmdbID int64) (*Details, error) {
	if tmdbID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("append_to_response", "keywords")
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Latency: latency}
	}

	var payload Details
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode movie details: %w", err)
	}
	return &payload, nil
}
