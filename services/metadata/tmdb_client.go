package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// Minimal TMDB v3 client covering the catalog rows, search and detail pages.
type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client
	cache    *fileCache
	baseURL  string

	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
}

func newTMDBClient(apiKey, lang string, httpc *http.Client, cache *fileCache) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:     strings.TrimSpace(apiKey),
		language:   normalizeLanguage(lang),
		httpc:      httpc,
		cache:      cache,
		baseURL:    tmdbBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(40), 40), // TMDB allows ~50 req/s
		attempts:   3,
		retryDelay: 500 * time.Millisecond,
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c.apiKey != ""
}

// normalizeLanguage turns user input into the language-REGION form TMDB
// expects. A bare language gets the US region.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en-US"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf != language.Exact {
		return base.String() + "-US"
	}
	return base.String() + "-" + region.String()
}

type tmdbResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	MediaType    string  `json:"media_type"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ProfilePath  string  `json:"profile_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	Genres       []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres,omitempty"`
}

type tmdbListResponse struct {
	Page         int          `json:"page"`
	Results      []tmdbResult `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
}

// tmdbStatusError is returned for non-2xx responses.
type tmdbStatusError struct {
	StatusCode int
	Body       string
}

func (e *tmdbStatusError) Error() string {
	return fmt.Sprintf("tmdb request failed: %d %s", e.StatusCode, e.Body)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// get performs a cached, throttled GET against path and decodes into v.
func (c *tmdbClient) get(ctx context.Context, path string, params url.Values, v any) error {
	if !c.isConfigured() {
		return errors.New("tmdb api key not configured")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", c.language)

	key := cacheKey("tmdb", path, params.Encode())
	if c.cache != nil {
		if ok, _ := c.cache.get(key, v); ok {
			return nil
		}
	}

	err := retry.Do(
		func() error { return c.fetch(ctx, path, params, v) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !retry.IsRecoverable(err) {
				return false
			}
			var se *tmdbStatusError
			if errors.As(err, &se) {
				return retryableStatus(se.StatusCode)
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[tmdb] retrying %s (attempt %d): %v", path, n+1, err)
		}),
	)
	if err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.set(key, v); err != nil {
			log.Printf("[tmdb] failed to cache %s: %v", path, err)
		}
	}
	return nil
}

func (c *tmdbClient) fetch(ctx context.Context, path string, params url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	q := url.Values{}
	for k, vals := range params {
		q[k] = vals
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	// v4 read access tokens are JWTs; plain v3 keys go in the query string.
	if strings.HasPrefix(c.apiKey, "eyJ") {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		q.Set("api_key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &tmdbStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return retry.Unrecoverable(fmt.Errorf("decode tmdb response: %w", err))
	}
	return nil
}

func (c *tmdbClient) list(ctx context.Context, path string, params url.Values) ([]tmdbResult, error) {
	var resp tmdbListResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *tmdbClient) trending(ctx context.Context, mediaType string) ([]tmdbResult, error) {
	return c.list(ctx, fmt.Sprintf("/trending/%s/week", mediaType), nil)
}

func (c *tmdbClient) topRated(ctx context.Context) ([]tmdbResult, error) {
	return c.list(ctx, "/movie/top_rated", nil)
}

func (c *tmdbClient) upcoming(ctx context.Context) ([]tmdbResult, error) {
	return c.list(ctx, "/movie/upcoming", nil)
}

func (c *tmdbClient) search(ctx context.Context, query string) ([]tmdbResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	return c.list(ctx, "/search/multi", params)
}

func (c *tmdbClient) movieDetails(ctx context.Context, id int64) (*tmdbResult, error) {
	var movie tmdbResult
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

func (c *tmdbClient) similar(ctx context.Context, id int64) ([]tmdbResult, error) {
	return c.list(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/similar", nil)
}

// parseTMDBYear takes the year from whichever date is set.
func parseTMDBYear(releaseDate, firstAirDate string) int {
	date := releaseDate
	if date == "" {
		date = firstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
