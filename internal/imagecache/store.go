package imagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry describes a cached image.
type Entry struct {
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`

	path string
}

// Store keeps warmed image bytes on disk, keyed by the source URL.
type Store struct {
	log *slog.Logger
	fs  afero.Fs
	dir string
}

// NewStore creates a store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image cache dir: %w", err)
	}
	return &Store{
		log: slog.Default().With("component", "image-cache"),
		fs:  fs,
		dir: dir,
	}, nil
}

// Key derives the on-disk name for url.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:16])
}

func (s *Store) dataPath(key string) string {
	return filepath.Join(s.dir, key+".img")
}

func (s *Store) metaPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Put writes data for url. The data file is written before its sidecar so a
// reader never sees metadata without bytes.
func (s *Store) Put(entry Entry, data []byte) error {
	if entry.URL == "" {
		return errors.New("empty url")
	}
	key := Key(entry.URL)
	entry.Size = int64(len(data))
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now()
	}

	if err := s.writeAtomic(s.dataPath(key), data); err != nil {
		return fmt.Errorf("write image data: %w", err)
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.writeAtomic(s.metaPath(key), meta); err != nil {
		return fmt.Errorf("write image metadata: %w", err)
	}
	s.log.Debug("Stored image", "url", entry.URL, "size", entry.Size, "content_type", entry.ContentType)
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return s.fs.Rename(tmp, path)
}

// Get returns the metadata for url if both the sidecar and data are present.
func (s *Store) Get(url string) (Entry, bool) {
	key := Key(url)
	raw, err := afero.ReadFile(s.fs, s.metaPath(key))
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.log.Warn("Discarding unreadable cache metadata", "url", url, "error", err)
		return Entry{}, false
	}
	if ok, _ := afero.Exists(s.fs, s.dataPath(key)); !ok {
		return Entry{}, false
	}
	entry.path = s.dataPath(key)
	return entry, true
}

// Has reports whether url is cached.
func (s *Store) Has(url string) bool {
	_, ok := s.Get(url)
	return ok
}

// Open returns a reader over the cached bytes for url.
func (s *Store) Open(url string) (Entry, afero.File, error) {
	entry, ok := s.Get(url)
	if !ok {
		return Entry{}, nil, os.ErrNotExist
	}
	f, err := s.fs.Open(entry.path)
	if err != nil {
		return Entry{}, nil, err
	}
	return entry, f, nil
}

// Clear removes every cached image. It returns the number of images removed.
func (s *Store) Clear() (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var removed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".img") && !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil {
			continue // best effort
		}
		if strings.HasSuffix(name, ".img") {
			removed++
		}
	}
	s.log.Info("Cleared image cache", "removed", removed)
	return removed, nil
}
