package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"novafront/services/preload"
	"novafront/utils"
)

const (
	maxPreloadURLs     = 100
	defaultWaitTimeout = 30 * time.Second
)

//go:generate mockgen -source=preload.go -destination=mock_preload_service_test.go -package=handlers

// preloadService is the queue as seen by the HTTP layer.
type preloadService interface {
	Submit(url string, opts preload.Options) *preload.Future
	PreloadCritical(urls []string) []*preload.Future
	PreloadNextPage(urls []string) []*preload.Future
	ClearCache()
	Stats() preload.Stats
}

// imageStoreClearer drops warmed image files.
type imageStoreClearer interface {
	Clear() (int, error)
}

type PreloadHandler struct {
	queue       preloadService
	store       imageStoreClearer
	imageBase   string
	waitTimeout time.Duration
}

// NewPreloadHandler exposes queue over HTTP. Relative URLs in requests are
// resolved against imageBase. store may be nil.
func NewPreloadHandler(queue preloadService, store imageStoreClearer, imageBase string) *PreloadHandler {
	return &PreloadHandler{
		queue:       queue,
		store:       store,
		imageBase:   imageBase,
		waitTimeout: defaultWaitTimeout,
	}
}

// RegisterRoutes mounts the preload API on r behind the given middleware.
func (h *PreloadHandler) RegisterRoutes(r *mux.Router, mw ...mux.MiddlewareFunc) {
	sub := r.PathPrefix("/api/preload").Subrouter()
	sub.Use(mw...)
	sub.HandleFunc("", h.Preload).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/critical", h.Critical).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/next", h.NextPage).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/cache", h.ClearCache).Methods(http.MethodDelete, http.MethodOptions)
	sub.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
}

type preloadRequest struct {
	URLs     []string `json:"urls"`
	Priority string   `json:"priority"`
	DelayMs  int      `json:"delayMs"`
	Wait     bool     `json:"wait"`
}

type rejectedURL struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type resultView struct {
	URL      string            `json:"url"`
	Cached   bool              `json:"cached,omitempty"`
	Resource *preload.Resource `json:"resource,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type preloadResponse struct {
	Tasks    []preload.Task `json:"tasks"`
	Rejected []rejectedURL  `json:"rejected,omitempty"`
	Results  []resultView   `json:"results,omitempty"`
	Stats    preload.Stats  `json:"stats"`
}

// Preload submits URLs with a caller-chosen priority and delay.
func (h *PreloadHandler) Preload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.DelayMs < 0 {
		writeError(w, http.StatusBadRequest, "delayMs must not be negative")
		return
	}
	urls, rejected := h.normalize(req.URLs)
	opts := preload.Options{
		Priority: preload.ParsePriority(req.Priority),
		Delay:    time.Duration(req.DelayMs) * time.Millisecond,
	}
	futures := make([]*preload.Future, 0, len(urls))
	for _, url := range urls {
		futures = append(futures, h.queue.Submit(url, opts))
	}
	h.respond(w, r, futures, rejected, req.Wait)
}

// Critical warms above-the-fold images: the first few URLs, high priority,
// staggered.
func (h *PreloadHandler) Critical(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	urls, rejected := h.normalize(req.URLs)
	h.respond(w, r, h.queue.PreloadCritical(urls), rejected, req.Wait)
}

// NextPage schedules low priority lookahead loads. It never waits: the loads
// do not start until the lookahead delay has passed.
func (h *PreloadHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	urls, rejected := h.normalize(req.URLs)
	h.respond(w, r, h.queue.PreloadNextPage(urls), rejected, false)
}

// ClearCache forgets preloaded URLs. With ?files=true the warmed image files
// are removed before the queue forgets its URLs.
func (h *PreloadHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"cleared": true}
	if strings.EqualFold(r.URL.Query().Get("files"), "true") && h.store != nil {
		removed, err := h.store.Clear()
		if err != nil {
			h.queue.ClearCache()
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["filesRemoved"] = removed
	}
	h.queue.ClearCache()
	resp["stats"] = h.queue.Stats()
	writeJSON(w, http.StatusOK, resp)
}

// Stats returns the queue snapshot.
func (h *PreloadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Stats())
}

func (h *PreloadHandler) decode(w http.ResponseWriter, r *http.Request) (preloadRequest, bool) {
	var req preloadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return req, false
	}
	if len(req.URLs) > maxPreloadURLs {
		writeError(w, http.StatusBadRequest, "too many urls")
		return req, false
	}
	return req, true
}

func (h *PreloadHandler) normalize(raw []string) ([]string, []rejectedURL) {
	urls := make([]string, 0, len(raw))
	var rejected []rejectedURL
	for _, u := range raw {
		normalized, err := utils.NormalizeImageURL(u, h.imageBase)
		if err != nil {
			rejected = append(rejected, rejectedURL{URL: u, Error: err.Error()})
			continue
		}
		urls = append(urls, normalized)
	}
	return urls, rejected
}

func (h *PreloadHandler) respond(w http.ResponseWriter, r *http.Request, futures []*preload.Future, rejected []rejectedURL, wait bool) {
	resp := preloadResponse{
		Tasks:    make([]preload.Task, 0, len(futures)),
		Rejected: rejected,
	}
	status := http.StatusAccepted
	if wait {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()
		for _, res := range preload.WaitAll(ctx, futures) {
			view := resultView{URL: res.URL, Cached: res.Cached, Resource: res.Resource}
			if res.Err != nil {
				view.Error = res.Err.Error()
			}
			resp.Results = append(resp.Results, view)
		}
		status = http.StatusOK
	}
	for _, f := range futures {
		resp.Tasks = append(resp.Tasks, f.Task())
	}
	resp.Stats = h.queue.Stats()
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
