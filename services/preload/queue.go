package preload

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue defaults, matching what the catalog pages were tuned for.
const (
	DefaultMaxConcurrent   = 3
	DefaultCriticalCount   = 4
	DefaultCriticalStagger = 100 * time.Millisecond
	DefaultNextPageDelay   = 2 * time.Second
)

var errEmptyURL = errors.New("empty url")

// Config controls queue limits and the timing of the batch helpers.
type Config struct {
	// MaxConcurrent caps in-flight loads for low priority admission.
	MaxConcurrent int
	// HighPriorityLimit bounds in-flight high priority loads. Zero leaves
	// high priority work unbounded so it always starts immediately.
	HighPriorityLimit int
	// CriticalCount is how many URLs PreloadCritical takes from its input.
	CriticalCount int
	// CriticalStagger spaces critical loads index*stagger apart.
	CriticalStagger time.Duration
	// NextPageDelay holds back lookahead loads.
	NextPageDelay time.Duration
}

// DefaultConfig returns the stock queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:   DefaultMaxConcurrent,
		CriticalCount:   DefaultCriticalCount,
		CriticalStagger: DefaultCriticalStagger,
		NextPageDelay:   DefaultNextPageDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.HighPriorityLimit < 0 {
		c.HighPriorityLimit = 0
	}
	if c.CriticalCount <= 0 {
		c.CriticalCount = d.CriticalCount
	}
	if c.CriticalStagger < 0 {
		c.CriticalStagger = 0
	}
	if c.NextPageDelay < 0 {
		c.NextPageDelay = 0
	}
	return c
}

type pendingTask struct {
	url      string
	priority Priority
	future   *Future
}

// Queue warms a cache by loading URLs through a Loader without exceeding a
// concurrency cap. URLs that loaded successfully are remembered for the
// lifetime of the queue (or until ClearCache) and are not loaded again.
type Queue struct {
	loader  Loader
	cfg     Config
	metrics *Metrics

	mu          sync.Mutex
	preloaded   map[string]struct{}
	pending     []*pendingTask // low priority FIFO
	highPending []*pendingTask // only used when HighPriorityLimit > 0
	loading     int
	highLoading int
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue that loads through loader. metrics may be nil.
func NewQueue(loader Loader, cfg Config, metrics *Metrics) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	cfg = cfg.withDefaults()
	if cfg.HighPriorityLimit == 0 {
		log.Printf("[preload] high priority loads bypass the cap of %d without limit", cfg.MaxConcurrent)
	}
	return &Queue{
		loader:    loader,
		cfg:       cfg,
		metrics:   metrics,
		preloaded: make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Config returns the effective configuration.
func (q *Queue) Config() Config {
	return q.cfg
}

// Submit schedules url and returns immediately with its future.
func (q *Queue) Submit(url string, opts Options) *Future {
	url = strings.TrimSpace(url)
	priority := opts.Priority
	if priority != PriorityHigh {
		priority = PriorityLow
	}
	f := newFuture(uuid.NewString(), url, priority)

	if url == "" {
		f.settle(Result{Err: &LoadError{URL: url, Err: errEmptyURL}})
		return f
	}

	t := &pendingTask{url: url, priority: priority, future: f}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		f.settle(Result{Err: ErrClosed})
		return f
	}
	if _, ok := q.preloaded[url]; ok {
		q.metrics.recordCacheHit()
		f.settle(Result{Cached: true})
		return f
	}
	if opts.Delay > 0 {
		q.wg.Add(1)
		go q.admitAfter(t, opts.Delay)
		return f
	}
	q.admitLocked(t)
	return f
}

// Preload submits url and blocks until it settles or ctx ends. A nil resource
// with a nil error means the URL was already preloaded.
func (q *Queue) Preload(ctx context.Context, url string, opts Options) (*Resource, error) {
	return q.Submit(url, opts).Wait(ctx)
}

// PreloadCritical loads the first CriticalCount URLs with high priority,
// starting each index*CriticalStagger after the call.
func (q *Queue) PreloadCritical(urls []string) []*Future {
	if len(urls) > q.cfg.CriticalCount {
		urls = urls[:q.cfg.CriticalCount]
	}
	futures := make([]*Future, 0, len(urls))
	for i, url := range urls {
		futures = append(futures, q.Submit(url, Options{
			Priority: PriorityHigh,
			Delay:    time.Duration(i) * q.cfg.CriticalStagger,
		}))
	}
	return futures
}

// PreloadNextPage loads urls with low priority once NextPageDelay has passed.
func (q *Queue) PreloadNextPage(urls []string) []*Future {
	futures := make([]*Future, 0, len(urls))
	for _, url := range urls {
		futures = append(futures, q.Submit(url, Options{
			Priority: PriorityLow,
			Delay:    q.cfg.NextPageDelay,
		}))
	}
	return futures
}

// ClearCache forgets every preloaded URL and drops pending tasks, which fail
// with ErrCleared. Loads already in flight are left alone.
func (q *Queue) ClearCache() {
	q.mu.Lock()
	forgotten := len(q.preloaded)
	dropped := q.drainPendingLocked()
	q.preloaded = make(map[string]struct{})
	q.observeLocked()
	q.mu.Unlock()

	for _, t := range dropped {
		t.future.settle(Result{Err: ErrCleared})
	}
	log.Printf("[preload] cache cleared (forgot %d urls, dropped %d pending)", forgotten, len(dropped))
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Preloaded: len(q.preloaded),
		Queued:    len(q.pending) + len(q.highPending),
		Loading:   q.loading,
	}
}

// IsPreloaded reports whether url loaded successfully since the last clear.
func (q *Queue) IsPreloaded(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.preloaded[strings.TrimSpace(url)]
	return ok
}

// Forget drops url from the preloaded set so the next Submit loads it again.
// It reports whether url was preloaded.
func (q *Queue) Forget(url string) bool {
	url = strings.TrimSpace(url)
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.preloaded[url]; !ok {
		return false
	}
	delete(q.preloaded, url)
	q.observeLocked()
	return true
}

// Close rejects pending and delayed work with ErrClosed, cancels in-flight
// loads and waits for every queue goroutine to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := q.drainPendingLocked()
	q.observeLocked()
	q.mu.Unlock()

	for _, t := range dropped {
		t.future.settle(Result{Err: ErrClosed})
	}
	q.cancel()
	q.wg.Wait()
	log.Printf("[preload] queue closed")
}

func (q *Queue) admitAfter(t *pendingTask, delay time.Duration) {
	defer q.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-q.ctx.Done():
		t.future.settle(Result{Err: ErrClosed})
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		t.future.settle(Result{Err: ErrClosed})
		return
	}
	if _, ok := q.preloaded[t.url]; ok {
		q.metrics.recordCacheHit()
		t.future.settle(Result{Cached: true})
		return
	}
	q.admitLocked(t)
}

// admitLocked starts t or parks it in the matching FIFO. Caller holds q.mu.
func (q *Queue) admitLocked(t *pendingTask) {
	switch t.priority {
	case PriorityHigh:
		if q.cfg.HighPriorityLimit > 0 && q.highLoading >= q.cfg.HighPriorityLimit {
			q.highPending = append(q.highPending, t)
			q.observeLocked()
			return
		}
	default:
		if q.loading >= q.cfg.MaxConcurrent {
			q.pending = append(q.pending, t)
			q.observeLocked()
			return
		}
	}
	q.startLocked(t)
}

func (q *Queue) startLocked(t *pendingTask) {
	q.loading++
	if t.priority == PriorityHigh {
		q.highLoading++
	}
	t.future.setState(StateLoading)
	q.metrics.recordStart(t.priority)
	q.observeLocked()

	q.wg.Add(1)
	go q.run(t)
}

func (q *Queue) run(t *pendingTask) {
	defer q.wg.Done()

	res, err := q.loader.Load(q.ctx, t.url)

	q.mu.Lock()
	q.loading--
	if t.priority == PriorityHigh {
		q.highLoading--
	}
	if err == nil {
		q.preloaded[t.url] = struct{}{}
	}
	q.metrics.recordFinish(t.priority, err)
	q.processLocked()
	q.mu.Unlock()

	if err != nil {
		t.future.settle(Result{Err: &LoadError{URL: t.url, Err: err}})
		return
	}
	t.future.settle(Result{Resource: res})
}

// processLocked starts waiting tasks while slots are free: bounded high
// priority work first, then the low priority FIFO.
func (q *Queue) processLocked() {
	for len(q.highPending) > 0 && q.highLoading < q.cfg.HighPriorityLimit {
		next := q.highPending[0]
		q.highPending[0] = nil
		q.highPending = q.highPending[1:]
		q.startLocked(next)
	}
	for len(q.pending) > 0 && q.loading < q.cfg.MaxConcurrent {
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.startLocked(next)
	}
	q.observeLocked()
}

func (q *Queue) drainPendingLocked() []*pendingTask {
	dropped := make([]*pendingTask, 0, len(q.highPending)+len(q.pending))
	dropped = append(dropped, q.highPending...)
	dropped = append(dropped, q.pending...)
	q.highPending = nil
	q.pending = nil
	return dropped
}

func (q *Queue) observeLocked() {
	q.metrics.observe(q.loading, len(q.pending)+len(q.highPending))
}
