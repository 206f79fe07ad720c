package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"novafront/models"
)

// Config holds what the catalog service needs to reach TMDB.
type Config struct {
	APIKey   string
	Language string
	CacheDir string
	TTLHours int
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Service serves catalog rows, search and detail pages from TMDB.
type Service struct {
	mu       sync.RWMutex
	tmdb     *tmdbClient
	cache    *fileCache
	httpc    *http.Client
	ttlHours int
}

// NewService builds a catalog service whose response cache lives on fs.
func NewService(fs afero.Fs, cfg Config) *Service {
	cache := newFileCache(fs, filepath.Join(cfg.CacheDir, "metadata"), cfg.TTLHours)
	return &Service{
		tmdb:     newTMDBClient(cfg.APIKey, cfg.Language, cfg.HTTPClient, cache),
		cache:    cache,
		httpc:    cfg.HTTPClient,
		ttlHours: cfg.TTLHours,
	}
}

func (s *Service) client() *tmdbClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmdb
}

// UpdateAPIKey swaps credentials and language at runtime and drops cached
// responses fetched with the old settings.
func (s *Service) UpdateAPIKey(apiKey, lang string) {
	s.mu.Lock()
	s.tmdb = newTMDBClient(apiKey, lang, s.httpc, s.cache)
	s.mu.Unlock()

	if err := s.cache.clear(); err != nil {
		log.Printf("[metadata] warning: failed to clear cache: %v", err)
	} else {
		log.Printf("[metadata] cleared metadata cache due to API key change")
	}
}

// ClearCache removes all cached metadata files.
func (s *Service) ClearCache() error {
	return s.cache.clear()
}

// normalizeMediaType maps the names the front end uses to TMDB's path segment.
func normalizeMediaType(mediaType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", "movie", "movies":
		return "movie", nil
	case "tv", "series", "show", "shows":
		return "tv", nil
	default:
		return "", fmt.Errorf("unsupported media type %q", mediaType)
	}
}

// Trending returns this week's trending movies or series.
func (s *Service) Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error) {
	segment, err := normalizeMediaType(mediaType)
	if err != nil {
		return nil, err
	}
	results, err := s.client().trending(ctx, segment)
	if err != nil {
		return nil, fmt.Errorf("trending %s: %w", segment, err)
	}
	return rankTitles(results, segment), nil
}

// TopRated returns the top rated movies.
func (s *Service) TopRated(ctx context.Context) ([]models.TrendingItem, error) {
	results, err := s.client().topRated(ctx)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	return rankTitles(results, "movie"), nil
}

// Upcoming returns movies with an upcoming theatrical release.
func (s *Service) Upcoming(ctx context.Context) ([]models.TrendingItem, error) {
	results, err := s.client().upcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("upcoming: %w", err)
	}
	return rankTitles(results, "movie"), nil
}

// Search runs a multi search across movies, series and people.
func (s *Service) Search(ctx context.Context, query string) ([]models.Title, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	results, err := s.client().search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	titles := make([]models.Title, 0, len(results))
	for _, r := range results {
		switch r.MediaType {
		case "movie", "tv", "person":
			titles = append(titles, toTitle(r, r.MediaType))
		}
	}
	return titles, nil
}

// MovieDetails returns a movie together with similar titles. Failing to load
// similar titles is not fatal.
func (s *Service) MovieDetails(ctx context.Context, id int64) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id %d", id)
	}
	movie, err := s.client().movieDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("movie %d: %w", id, err)
	}
	details := &models.MovieDetails{Title: toTitle(*movie, "movie")}

	similar, err := s.Similar(ctx, id)
	if err != nil {
		log.Printf("[metadata] similar titles unavailable for movie %d: %v", id, err)
	} else {
		details.Similar = similar
	}
	return details, nil
}

// Similar returns movies similar to id.
func (s *Service) Similar(ctx context.Context, id int64) ([]models.Title, error) {
	results, err := s.client().similar(ctx, id)
	if err != nil {
		return nil, err
	}
	titles := make([]models.Title, 0, len(results))
	for _, r := range results {
		titles = append(titles, toTitle(r, "movie"))
	}
	return titles, nil
}

type homeRowDef struct {
	id    string
	name  string
	fetch func(context.Context) ([]models.TrendingItem, error)
}

// HomeRows fetches every home page row concurrently. A row that fails is
// returned with its Error set so the page can still render the others.
func (s *Service) HomeRows(ctx context.Context) []models.CatalogRow {
	defs := []homeRowDef{
		{id: "trending-movies", name: "Trending Movies", fetch: func(ctx context.Context) ([]models.TrendingItem, error) {
			return s.Trending(ctx, "movie")
		}},
		{id: "trending-series", name: "Trending TV Shows", fetch: func(ctx context.Context) ([]models.TrendingItem, error) {
			return s.Trending(ctx, "series")
		}},
		{id: "top-rated", name: "Top Rated", fetch: s.TopRated},
		{id: "upcoming", name: "Upcoming", fetch: s.Upcoming},
	}

	type indexedRow struct {
		index int
		row   models.CatalogRow
	}

	p := pool.NewWithResults[indexedRow]().WithMaxGoroutines(len(defs))
	for i, def := range defs {
		i, def := i, def
		p.Go(func() indexedRow {
			row := models.CatalogRow{ID: def.id, Name: def.name}
			items, err := def.fetch(ctx)
			if err != nil {
				log.Printf("[metadata] home row %s failed: %v", def.id, err)
				row.Error = err.Error()
			} else {
				row.Items = items
			}
			return indexedRow{index: i, row: row}
		})
	}
	results := p.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	rows := make([]models.CatalogRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, r.row)
	}
	return rows
}

func rankTitles(results []tmdbResult, fallbackType string) []models.TrendingItem {
	items := make([]models.TrendingItem, 0, len(results))
	for i, r := range results {
		items = append(items, models.TrendingItem{Rank: i + 1, Title: toTitle(r, fallbackType)})
	}
	return items
}

func toTitle(r tmdbResult, fallbackType string) models.Title {
	mediaType := r.MediaType
	if mediaType == "" {
		mediaType = fallbackType
	}
	name := r.Title
	if name == "" {
		name = r.Name
	}
	t := models.Title{
		ID:           r.ID,
		Name:         name,
		Overview:     r.Overview,
		Year:         parseTMDBYear(r.ReleaseDate, r.FirstAirDate),
		Popularity:   r.Popularity,
		VoteAverage:  r.VoteAverage,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ProfilePath:  r.ProfilePath,
	}
	switch mediaType {
	case "tv":
		t.MediaType = models.MediaTypeSeries
	case "person":
		t.MediaType = models.MediaTypePerson
	default:
		t.MediaType = models.MediaTypeMovie
	}
	for _, g := range r.Genres {
		t.Genres = append(t.Genres, g.Name)
	}
	if t.MediaType == models.MediaTypePerson {
		t.Poster = buildTMDBImage(r.ProfilePath, tmdbProfileSize, "profile")
	} else {
		t.Poster = buildTMDBImage(r.PosterPath, tmdbPosterSize, "poster")
		t.Backdrop = buildTMDBImage(r.BackdropPath, tmdbBackdropSize, "backdrop")
	}
	describeImage(t.Poster, t)
	describeImage(t.Backdrop, t)
	return t
}
