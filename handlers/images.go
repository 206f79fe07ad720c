package handlers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"novafront/internal/imagecache"
	"novafront/services/metadata"
	"novafront/services/preload"
)

var imageSizePattern = regexp.MustCompile(`^(original|w\d{2,4}|h\d{2,4}|w\d{2,4}_and_h\d{2,4}_multi_faces)$`)

// imageQueue is the part of the preload queue the image proxy needs.
type imageQueue interface {
	Submit(url string, opts preload.Options) *preload.Future
	Forget(url string) bool
}

// imageStore reads warmed images.
type imageStore interface {
	Open(url string) (imagecache.Entry, afero.File, error)
}

// ImageHandler serves TMDB artwork from the warm cache, loading on a miss.
type ImageHandler struct {
	queue   imageQueue
	store   imageStore
	timeout time.Duration
}

func NewImageHandler(queue imageQueue, store imageStore) *ImageHandler {
	return &ImageHandler{queue: queue, store: store, timeout: defaultWaitTimeout}
}

// RegisterRoutes mounts the image proxy on r.
func (h *ImageHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/images/{size}/{file}", h.Serve).Methods(http.MethodGet, http.MethodHead)
}

// Serve answers GET /api/images/{size}/{file}. A size of "auto" picks the
// closest TMDB width for ?width= and ?dpr=.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	size := vars["size"]
	file := vars["file"]
	if file == "" || strings.Contains(file, "..") || strings.ContainsAny(file, `/\`) {
		writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}
	var src string
	if size == "auto" {
		src = autoImageURL(r, "/"+file)
	} else {
		if !imageSizePattern.MatchString(size) {
			writeError(w, http.StatusBadRequest, "invalid image size")
			return
		}
		src = metadata.ImageURL("/"+file, size)
	}

	if h.serveCached(w, r, src) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	res, ok := h.load(ctx, w, src)
	if !ok {
		return
	}
	if h.serveCached(w, r, src) {
		return
	}

	if res.Cached {
		// The queue remembers the URL but the file is gone, e.g. removed on
		// disk after the load finished. Forget it and load once more.
		log.Printf("[images] %s preloaded but missing from cache, reloading", src)
		h.queue.Forget(src)
		if _, ok := h.load(ctx, w, src); !ok {
			return
		}
		if h.serveCached(w, r, src) {
			return
		}
	}
	writeError(w, http.StatusNotFound, "image not cached")
}

// load submits src with high priority and waits for it. On failure the error
// response has been written and ok is false.
func (h *ImageHandler) load(ctx context.Context, w http.ResponseWriter, src string) (res preload.Result, ok bool) {
	f := h.queue.Submit(src, preload.Options{Priority: preload.PriorityHigh})
	if _, err := f.Wait(ctx); err != nil {
		var loadErr *preload.LoadError
		switch {
		case errors.As(err, &loadErr):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "image load timed out")
		default:
			writeError(w, http.StatusServiceUnavailable, err.Error())
		}
		return preload.Result{}, false
	}
	return f.Result(), true
}

func autoImageURL(r *http.Request, filePath string) string {
	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width <= 0 {
		return metadata.ImageURL(filePath, metadata.GridPosterSize)
	}
	dpr, err := strconv.ParseFloat(r.URL.Query().Get("dpr"), 64)
	if err != nil || math.IsNaN(dpr) || math.IsInf(dpr, 0) || dpr <= 0 {
		dpr = 1
	}
	return metadata.OptimizedImageURL(filePath, width, dpr)
}

func (h *ImageHandler) serveCached(w http.ResponseWriter, r *http.Request, src string) bool {
	entry, f, err := h.store.Open(src)
	if err != nil {
		return false
	}
	defer f.Close()

	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Source-URL", src)
	http.ServeContent(w, r, "", entry.FetchedAt, f)
	return true
}
