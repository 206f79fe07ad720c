package app

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"novafront/api"
	"novafront/config"
	"novafront/handlers"
	"novafront/internal/imagecache"
	"novafront/services/metadata"
	"novafront/services/preload"
	"novafront/utils"
)

// Options override the pieces tests need to swap out.
type Options struct {
	Fs         afero.Fs
	HTTPClient *http.Client // used for TMDB and image loads
	Loader     preload.Loader
	Registry   *prometheus.Registry
}

// App owns every long-lived component of the service.
type App struct {
	Settings config.Settings
	Catalog  *metadata.Service
	Queue    *preload.Queue
	Strategy *preload.Strategy
	Images   *imagecache.Store
	Registry *prometheus.Registry
	Limiter  *api.ClientRateLimiter
	Router   *mux.Router

	reloadMu sync.Mutex
}

// New wires the service from settings.
func New(settings config.Settings, opts Options) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	store, err := imagecache.NewStore(fs, settings.Images.CacheDir)
	if err != nil {
		return nil, err
	}

	loader := opts.Loader
	if loader == nil {
		httpc := opts.HTTPClient
		if httpc == nil {
			httpc = &http.Client{Timeout: time.Duration(settings.Images.TimeoutSeconds) * time.Second}
		}
		loader = preload.NewHTTPLoader(httpc, store)
	}

	queue := preload.NewQueue(loader, QueueConfig(settings.Preload), preload.NewMetrics(reg))
	catalog := metadata.NewService(fs, metadata.Config{
		APIKey:     settings.Metadata.TMDBAPIKey,
		Language:   settings.Metadata.Language,
		CacheDir:   settings.Metadata.CacheDir,
		TTLHours:   settings.Metadata.CacheTTLHours,
		HTTPClient: opts.HTTPClient,
	})
	if settings.Metadata.TMDBAPIKey == "" {
		log.Printf("[app] TMDB API key not configured; catalog endpoints will fail")
	}

	a := &App{
		Settings: settings,
		Catalog:  catalog,
		Queue:    queue,
		Strategy: preload.NewStrategy(queue),
		Images:   store,
		Registry: reg,
		Limiter:  api.NewClientRateLimiter(api.PerMinute(settings.Server.PreloadRatePerMinute), burstFor(settings.Server.PreloadRatePerMinute)),
	}
	a.Router = a.routes()
	return a, nil
}

// QueueConfig maps file settings onto the queue configuration.
func QueueConfig(s config.PreloadSettings) preload.Config {
	return preload.Config{
		MaxConcurrent:     s.MaxConcurrent,
		HighPriorityLimit: s.HighPriorityLimit,
		CriticalCount:     s.CriticalCount,
		CriticalStagger:   time.Duration(s.CriticalStaggerMs) * time.Millisecond,
		NextPageDelay:     time.Duration(s.NextPageDelayMs) * time.Millisecond,
	}
}

func burstFor(perMinute int) int {
	if perMinute <= 0 {
		return 1
	}
	if b := perMinute / 4; b > 1 {
		return b
	}
	return 1
}

func (a *App) routes() *mux.Router {
	r := utils.NewRouter(utils.NewOriginPolicy(a.Settings.Server.AllowedOrigins))
	r.Use(api.RequestLogMiddleware())

	handlers.NewPreloadHandler(a.Queue, a.Images, metadata.ImageURL("/", metadata.GridPosterSize)).
		RegisterRoutes(r, api.RateLimit(a.Limiter))
	handlers.NewCatalogHandler(a.Catalog, a.Strategy).RegisterRoutes(r)
	handlers.NewImageHandler(a.Queue, a.Images).RegisterRoutes(r)
	handlers.NewVersionHandler().RegisterRoutes(r)

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Reload applies a re-read settings file. Only the TMDB credentials and
// language take effect at runtime; a change swaps the TMDB client and drops
// cached responses. It reports whether anything changed.
func (a *App) Reload(settings config.Settings) (bool, error) {
	if err := settings.Validate(); err != nil {
		return false, err
	}
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cur := a.Settings.Metadata
	next := settings.Metadata
	if cur.TMDBAPIKey == next.TMDBAPIKey && cur.Language == next.Language {
		return false, nil
	}
	a.Catalog.UpdateAPIKey(next.TMDBAPIKey, next.Language)
	a.Settings.Metadata.TMDBAPIKey = next.TMDBAPIKey
	a.Settings.Metadata.Language = next.Language
	log.Printf("[app] reloaded TMDB settings (language %s)", next.Language)
	return true, nil
}

// Close stops background work. In-flight image loads are cancelled.
func (a *App) Close() {
	a.Limiter.Stop()
	a.Queue.Close()
}

// String summarises the effective configuration for the startup log.
func (a *App) String() string {
	cfg := a.Queue.Config()
	return fmt.Sprintf("listen=%s maxConcurrent=%d highPriorityLimit=%d critical=%d/%s nextPage=%s",
		a.Settings.Server.Listen, cfg.MaxConcurrent, cfg.HighPriorityLimit, cfg.CriticalCount, cfg.CriticalStagger, cfg.NextPageDelay)
}
