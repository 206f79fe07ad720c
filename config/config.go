package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ServerSettings controls the HTTP listener.
type ServerSettings struct {
	Listen         string   `json:"listen"`
	AllowedOrigins []string `json:"allowedOrigins"` // extra public origins; private networks are always allowed
	// PreloadRatePerMinute bounds preload API calls per client IP.
	PreloadRatePerMinute int `json:"preloadRatePerMinute"`
}

// MetadataSettings configures the TMDB catalog client.
type MetadataSettings struct {
	TMDBAPIKey    string `json:"tmdbApiKey"`
	Language      string `json:"language"`
	CacheDir      string `json:"cacheDir"`
	CacheTTLHours int    `json:"cacheTtlHours"`
}

// PreloadSettings configures the image preload queue.
type PreloadSettings struct {
	MaxConcurrent     int `json:"maxConcurrent"`
	HighPriorityLimit int `json:"highPriorityLimit"` // 0 = high priority bypasses the cap without limit
	CriticalCount     int `json:"criticalCount"`
	CriticalStaggerMs int `json:"criticalStaggerMs"`
	NextPageDelayMs   int `json:"nextPageDelayMs"`
}

// ImageSettings configures the image loader and cache.
type ImageSettings struct {
	CacheDir       string `json:"cacheDir"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// LogSettings configures the rotating log file.
type LogSettings struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
	Debug      bool   `json:"debug"`
}

// Settings is the full configuration file.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Preload  PreloadSettings  `json:"preload"`
	Images   ImageSettings    `json:"images"`
	Log      LogSettings      `json:"log"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Listen:               ":7878",
			PreloadRatePerMinute: 120,
		},
		Metadata: MetadataSettings{
			Language:      "en-US",
			CacheDir:      "cache",
			CacheTTLHours: 24,
		},
		Preload: PreloadSettings{
			MaxConcurrent:     3,
			CriticalCount:     4,
			CriticalStaggerMs: 100,
			NextPageDelayMs:   2000,
		},
		Images: ImageSettings{
			CacheDir:       filepath.Join("cache", "images"),
			TimeoutSeconds: 30,
		},
		Log: LogSettings{
			File:       filepath.Join("logs", "novafront.log"),
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	if s.Preload.MaxConcurrent <= 0 {
		return fmt.Errorf("preload.maxConcurrent must be positive, got %d", s.Preload.MaxConcurrent)
	}
	if s.Preload.HighPriorityLimit < 0 {
		return fmt.Errorf("preload.highPriorityLimit must not be negative")
	}
	if s.Preload.CriticalStaggerMs < 0 || s.Preload.NextPageDelayMs < 0 {
		return fmt.Errorf("preload delays must not be negative")
	}
	if s.Images.TimeoutSeconds <= 0 {
		return fmt.Errorf("images.timeoutSeconds must be positive")
	}
	return nil
}

// Manager loads and persists Settings as JSON.
type Manager struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	env  func(string) string
}

// NewManager manages the settings file at path on the OS filesystem.
func NewManager(path string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), path)
}

// NewManagerWithFs manages the settings file at path on fs.
func NewManagerWithFs(fs afero.Fs, path string) *Manager {
	return &Manager{fs: fs, path: path, env: os.Getenv}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the settings file, falling back to defaults when it does not
// exist, then applies environment overrides.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := DefaultSettings()
	raw, err := afero.ReadFile(m.fs, m.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", m.path, err)
		}
	case os.IsNotExist(err):
	default:
		return Settings{}, fmt.Errorf("read %s: %w", m.path, err)
	}

	m.applyEnv(&settings)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes settings atomically.
func (m *Manager) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.path); dir != "" {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return m.fs.Rename(tmp, m.path)
}

func (m *Manager) applyEnv(s *Settings) {
	if v := strings.TrimSpace(m.env("TMDB_API_KEY")); v != "" {
		s.Metadata.TMDBAPIKey = v
	}
	if v := strings.TrimSpace(m.env("TMDB_LANGUAGE")); v != "" {
		s.Metadata.Language = v
	}
	if v := strings.TrimSpace(m.env("NOVAFRONT_LISTEN")); v != "" {
		s.Server.Listen = v
	}
	if v := strings.TrimSpace(m.env("NOVAFRONT_CACHE_DIR")); v != "" {
		s.Metadata.CacheDir = v
		s.Images.CacheDir = filepath.Join(v, "images")
	}
	if v := strings.TrimSpace(m.env("NOVAFRONT_PRELOAD_MAX_CONCURRENT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Preload.MaxConcurrent = n
		}
	}
	if v := strings.TrimSpace(m.env("NOVAFRONT_LOG_FILE")); v != "" {
		s.Log.File = v
	}
	if v := strings.TrimSpace(m.env("NOVAFRONT_DEBUG")); v != "" {
		s.Log.Debug, _ = strconv.ParseBool(v)
	}
}
