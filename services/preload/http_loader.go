package preload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"novafront/internal/imagecache"
)

const (
	defaultLoaderTimeout = 30 * time.Second
	defaultMaxImageBytes = 20 << 20 // 20 MB is well above the largest TMDB original
	imageAcceptHeader    = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

// decodable lists the formats image.DecodeConfig understands with the
// registered decoders. Other image types are accepted without dimensions.
var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// HTTPLoader fetches images over HTTP and stores them in the image cache.
type HTTPLoader struct {
	httpc    *http.Client
	store    *imagecache.Store
	maxBytes int64
}

// NewHTTPLoader creates a loader. store may be nil, in which case images are
// validated but not kept.
func NewHTTPLoader(httpc *http.Client, store *imagecache.Store) *HTTPLoader {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultLoaderTimeout}
	}
	return &HTTPLoader{
		httpc:    httpc,
		store:    store,
		maxBytes: defaultMaxImageBytes,
	}
}

// Load downloads url, checks that it is an image and records it in the store.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", imageAcceptHeader)

	resp, err := l.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	mt := mimetype.Detect(data)
	contentType := mt.String()
	if !isImageMIME(mt) {
		return nil, fmt.Errorf("not an image (detected %s)", contentType)
	}

	res := &Resource{
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
		LoadedAt:    time.Now(),
	}
	if decodable[contentType] {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", contentType, err)
		}
		res.Width = cfg.Width
		res.Height = cfg.Height
	}

	if l.store != nil {
		err := l.store.Put(imagecache.Entry{
			URL:         url,
			ContentType: contentType,
			FetchedAt:   res.LoadedAt,
			Width:       res.Width,
			Height:      res.Height,
		}, data)
		if err != nil {
			return nil, fmt.Errorf("cache image: %w", err)
		}
	}
	return res, nil
}

func isImageMIME(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
