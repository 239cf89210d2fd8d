// Package tmdb is a typed client for The Movie Database (TMDB) v3 API.
//
// Authentication uses the api_key query parameter. Poster URLs are composed
// from a fixed image CDN base plus the poster_path the API returns; an absent
// path yields an empty URL, never a bare base.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/you/movie-recommender/internal/metrics"
)

// Error taxonomy for metadata service calls.
var (
	// ErrNotFound means the service reported zero results for a lookup.
	ErrNotFound = errors.New("tmdb: not found")

	// ErrServiceUnavailable means a transport failure, timeout, 5xx
	// response, or an open circuit breaker.
	ErrServiceUnavailable = errors.New("tmdb: service unavailable")

	// ErrMalformedResponse means a required field was absent or the
	// payload did not decode.
	ErrMalformedResponse = errors.New("tmdb: malformed response")
)

// Config holds client settings.
type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
}

// Client calls the TMDB API. It holds no state beyond the HTTP client and
// circuit breaker and is safe for concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[httpResult]
}

type httpResult struct {
	status int
	body   []byte
}

// NewClient creates a Client. Zero-value config fields get production
// defaults; the API key has no default.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = "https://image.tmdb.org/t/p/w500"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[httpResult](gobreaker.Settings{
		Name:    "tmdb",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		imageBaseURL: cfg.ImageBaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		breaker:      breaker,
	}
}

// MovieRef identifies a movie on the external service.
type MovieRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Person identifies an actor or crew member on the external service.
type Person struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credits are a person's movie credits split by role.
type Credits struct {
	Cast []MovieRef `json:"cast"`
	Crew []MovieRef `json:"crew"`
}

// MovieDetails is the enrichment payload for one movie. PosterURL and
// TrailerURL are empty when the service has no poster or trailer.
type MovieDetails struct {
	PosterURL  string   `json:"poster_url,omitempty"`
	Rating     float64  `json:"rating"`
	Overview   string   `json:"overview"`
	TrailerURL string   `json:"trailer_url,omitempty"`
	Cast       []string `json:"cast"`
}

type detailsResponse struct {
	PosterPath  *string  `json:"poster_path"`
	VoteAverage *float64 `json:"vote_average"`
	Overview    *string  `json:"overview"`
}

type videosResponse struct {
	Results []struct {
		Key string `json:"key"`
	} `json:"results"`
}

type movieCreditsResponse struct {
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
}

type searchMoviesResponse struct {
	Results []MovieRef `json:"results"`
}

type searchPersonResponse struct {
	Results []Person `json:"results"`
}

// Details fetches poster, rating, and overview for a movie.
// vote_average and overview are required fields; poster_path is optional.
func (c *Client) Details(ctx context.Context, movieID int) (*MovieDetails, error) {
	var resp detailsResponse
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.VoteAverage == nil || resp.Overview == nil {
		countOutcome(metrics.OutcomeMalformed)
		return nil, fmt.Errorf("%w: movie %d missing vote_average or overview", ErrMalformedResponse, movieID)
	}
	d := &MovieDetails{
		Rating:   *resp.VoteAverage,
		Overview: *resp.Overview,
	}
	if resp.PosterPath != nil && *resp.PosterPath != "" {
		d.PosterURL = c.imageBaseURL + *resp.PosterPath
	}
	countOutcome(metrics.OutcomeOK)
	return d, nil
}

// Trailer returns a YouTube watch URL for the movie's first video, or ""
// when the movie has no videos. A missing trailer is not an error.
func (c *Client) Trailer(ctx context.Context, movieID int) (string, error) {
	var resp videosResponse
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID)+"/videos", nil, &resp); err != nil {
		return "", err
	}
	countOutcome(metrics.OutcomeOK)
	if len(resp.Results) == 0 {
		return "", nil
	}
	return "https://www.youtube.com/watch?v=" + resp.Results[0].Key, nil
}

// Cast returns up to the first five cast member names, in billing order.
func (c *Client) Cast(ctx context.Context, movieID int) ([]string, error) {
	var resp movieCreditsResponse
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID)+"/credits", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, 5)
	for _, member := range resp.Cast {
		names = append(names, member.Name)
		if len(names) == 5 {
			break
		}
	}
	countOutcome(metrics.OutcomeOK)
	return names, nil
}

// FetchDetails composes Details, Trailer, and Cast into one enrichment
// payload, the shape every movie card renders from.
func (c *Client) FetchDetails(ctx context.Context, movieID int) (*MovieDetails, error) {
	d, err := c.Details(ctx, movieID)
	if err != nil {
		return nil, err
	}
	trailer, err := c.Trailer(ctx, movieID)
	if err != nil {
		return nil, err
	}
	cast, err := c.Cast(ctx, movieID)
	if err != nil {
		return nil, err
	}
	d.TrailerURL = trailer
	d.Cast = cast
	return d, nil
}

// SearchMovie returns the first match for a title query.
func (c *Client) SearchMovie(ctx context.Context, query string) (MovieRef, error) {
	var resp searchMoviesResponse
	params := url.Values{"query": {query}}
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return MovieRef{}, err
	}
	if len(resp.Results) == 0 {
		countOutcome(metrics.OutcomeNotFound)
		return MovieRef{}, fmt.Errorf("%w: no movie matches %q", ErrNotFound, query)
	}
	countOutcome(metrics.OutcomeOK)
	return resp.Results[0], nil
}

// Trending returns up to limit movies trending this week.
func (c *Client) Trending(ctx context.Context, limit int) ([]MovieRef, error) {
	var resp searchMoviesResponse
	if err := c.get(ctx, "/trending/movie/week", nil, &resp); err != nil {
		return nil, err
	}
	countOutcome(metrics.OutcomeOK)
	return clip(resp.Results, limit), nil
}

// ByGenre returns up to limit movies discovered for a TMDB genre id.
func (c *Client) ByGenre(ctx context.Context, genreID, limit int) ([]MovieRef, error) {
	var resp searchMoviesResponse
	params := url.Values{"with_genres": {strconv.Itoa(genreID)}}
	if err := c.get(ctx, "/discover/movie", params, &resp); err != nil {
		return nil, err
	}
	countOutcome(metrics.OutcomeOK)
	return clip(resp.Results, limit), nil
}

// SearchPerson returns the first person matching a name query.
func (c *Client) SearchPerson(ctx context.Context, name string) (Person, error) {
	var resp searchPersonResponse
	params := url.Values{"query": {name}}
	if err := c.get(ctx, "/search/person", params, &resp); err != nil {
		return Person{}, err
	}
	if len(resp.Results) == 0 {
		countOutcome(metrics.OutcomeNotFound)
		return Person{}, fmt.Errorf("%w: no person matches %q", ErrNotFound, name)
	}
	countOutcome(metrics.OutcomeOK)
	return resp.Results[0], nil
}

// PersonCredits returns a person's movie credits, cast and crew.
func (c *Client) PersonCredits(ctx context.Context, personID int) (Credits, error) {
	var resp Credits
	if err := c.get(ctx, "/person/"+strconv.Itoa(personID)+"/movie_credits", nil, &resp); err != nil {
		return Credits{}, err
	}
	countOutcome(metrics.OutcomeOK)
	return resp, nil
}

// countOutcome records one outcome per logical call. Error paths count
// inside get; success paths count in the public methods after any
// post-decode validation, so outcomes partition the calls.
func countOutcome(outcome string) {
	metrics.TMDBRequestsTotal.WithLabelValues(outcome).Inc()
}

func clip(refs []MovieRef, limit int) []MovieRef {
	if limit > 0 && len(refs) > limit {
		return refs[:limit]
	}
	return refs
}

// get performs a GET through the circuit breaker and decodes the body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", "en-US")
	u := c.baseURL + path + "?" + params.Encode()

	res, err := c.breaker.Execute(func() (httpResult, error) {
		return c.do(ctx, u)
	})
	if err != nil {
		countOutcome(metrics.OutcomeUnavailable)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open for %s", ErrServiceUnavailable, path)
		}
		return err
	}

	switch {
	case res.status == http.StatusNotFound:
		countOutcome(metrics.OutcomeNotFound)
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case res.status != http.StatusOK:
		countOutcome(metrics.OutcomeUnavailable)
		return fmt.Errorf("%w: status %d for %s", ErrServiceUnavailable, res.status, path)
	}

	if err := json.Unmarshal(res.body, out); err != nil {
		countOutcome(metrics.OutcomeMalformed)
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

// do performs the raw request. Only transport failures and 5xx responses
// return an error so the breaker does not trip on 404s.
func (c *Client) do(ctx context.Context, u string) (httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return httpResult{}, fmt.Errorf("%w: build request: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return httpResult{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httpResult{}, fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return httpResult{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}
