package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"novafront/models"
	"novafront/services/preload"
)

type catalogService interface {
	HomeRows(ctx context.Context) []models.CatalogRow
	Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error)
	TopRated(ctx context.Context) ([]models.TrendingItem, error)
	Upcoming(ctx context.Context) ([]models.TrendingItem, error)
	Search(ctx context.Context, query string) ([]models.Title, error)
	MovieDetails(ctx context.Context, id int64) (*models.MovieDetails, error)
	ClearCache() error
}

// pageStrategy warms images for the page being served.
type pageStrategy interface {
	Homepage(featured []models.Title) preload.Batch
	MovieDetail(movie models.Title, similar []models.Title) preload.Batch
	SearchResults(results []models.Title) preload.Batch
	ContentGrid(items []models.Title) preload.Batch
	Stats() preload.Stats
}

type CatalogHandler struct {
	catalog  catalogService
	strategy pageStrategy
}

func NewCatalogHandler(catalog catalogService, strategy pageStrategy) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, strategy: strategy}
}

// RegisterRoutes mounts the catalog pages on r.
func (h *CatalogHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/catalog/home", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/rows/{row}", h.Row).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/movie/{id:[0-9]+}", h.Movie).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/cache", h.ClearCache).Methods(http.MethodDelete)
}

type pageResponse struct {
	Preload preload.Stats `json:"preload"`
}

// HomeResponse is the payload of the home page.
type HomeResponse struct {
	Rows []models.CatalogRow `json:"rows"`
	pageResponse
}

// Home returns every home row and warms the hero and first row from the
// first row that loaded.
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	rows := h.catalog.HomeRows(r.Context())
	for _, row := range rows {
		if len(row.Items) > 0 {
			h.strategy.Homepage(models.Titles(row.Items))
			break
		}
	}
	writeJSON(w, http.StatusOK, HomeResponse{Rows: rows, pageResponse: pageResponse{Preload: h.strategy.Stats()}})
}

// RowResponse is the payload of a full-page grid.
type RowResponse struct {
	Row   string                `json:"row"`
	Items []models.TrendingItem `json:"items"`
	pageResponse
}

// Row serves a single grid page (trending, top rated, upcoming).
func (h *CatalogHandler) Row(w http.ResponseWriter, r *http.Request) {
	row := strings.ToLower(mux.Vars(r)["row"])
	var (
		items []models.TrendingItem
		err   error
	)
	switch row {
	case "trending-movies":
		items, err = h.catalog.Trending(r.Context(), "movie")
	case "trending-series":
		items, err = h.catalog.Trending(r.Context(), "series")
	case "top-rated":
		items, err = h.catalog.TopRated(r.Context())
	case "upcoming":
		items, err = h.catalog.Upcoming(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown row")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.strategy.ContentGrid(models.Titles(items))
	writeJSON(w, http.StatusOK, RowResponse{Row: row, Items: items, pageResponse: pageResponse{Preload: h.strategy.Stats()}})
}

// MovieResponse is the payload of a detail page.
type MovieResponse struct {
	*models.MovieDetails
	pageResponse
}

// Movie serves a detail page and queues the similar titles as lookahead.
func (h *CatalogHandler) Movie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid movie id")
		return
	}
	details, err := h.catalog.MovieDetails(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.strategy.MovieDetail(details.Title, details.Similar)
	writeJSON(w, http.StatusOK, MovieResponse{MovieDetails: details, pageResponse: pageResponse{Preload: h.strategy.Stats()}})
}

// SearchResponse is the payload of the search page.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []models.Title `json:"results"`
	pageResponse
}

// Search runs a multi search and warms the first results.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	results, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.strategy.SearchResults(results)
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results, pageResponse: pageResponse{Preload: h.strategy.Stats()}})
}

// ClearCache drops cached TMDB responses so the next page load refetches.
func (h *CatalogHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ClearCache(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
