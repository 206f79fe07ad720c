package preload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Priority controls whether a task waits for a free slot ("low") or bypasses
// the concurrency cap ("high").
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// ParsePriority maps user input to a Priority. Anything that is not "high"
// is treated as low.
func ParsePriority(s string) Priority {
	if strings.EqualFold(strings.TrimSpace(s), string(PriorityHigh)) {
		return PriorityHigh
	}
	return PriorityLow
}

// State is the lifecycle of a single preload task.
type State int32

const (
	StateQueued State = iota
	StateLoading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options tune a single preload request.
type Options struct {
	Priority Priority
	Delay    time.Duration
}

// Task describes a submitted preload request.
type Task struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Priority  Priority  `json:"priority"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// Resource is the decoded image handle produced by a successful load.
type Resource struct {
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Size        int64     `json:"size"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// Loader fetches a single resource. Implementations must honour ctx.
type Loader interface {
	Load(ctx context.Context, url string) (*Resource, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, url string) (*Resource, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (*Resource, error) {
	return f(ctx, url)
}

var (
	// ErrCleared is returned to tasks that were still pending when ClearCache ran.
	ErrCleared = errors.New("preload: pending task dropped by cache clear")
	// ErrClosed is returned to tasks submitted to, or pending in, a closed queue.
	ErrClosed = errors.New("preload: queue closed")
)

// LoadError reports that the underlying loader failed for URL.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to preload image: %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Stats is a point-in-time snapshot of the queue.
type Stats struct {
	Preloaded int `json:"preloaded"`
	Queued    int `json:"queued"`
	Loading   int `json:"loading"`
}

// Result is the settled outcome of a task. Resource is nil when the URL was
// already preloaded (Cached) or when Err is set.
type Result struct {
	URL      string    `json:"url"`
	Resource *Resource `json:"resource,omitempty"`
	Cached   bool      `json:"cached,omitempty"`
	Err      error     `json:"-"`
}

// Future is the handle returned for every submitted URL. It settles exactly once.
type Future struct {
	task  Task
	state atomic.Int32
	once  sync.Once
	done  chan struct{}
	res   Result
}

func newFuture(id, url string, priority Priority) *Future {
	return &Future{
		task: Task{
			ID:        id,
			URL:       url,
			Priority:  priority,
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
}

// Task returns a snapshot of the task including its current state.
func (f *Future) Task() Task {
	t := f.task
	t.State = f.State()
	return t
}

// State reports where the task currently is in its lifecycle.
func (f *Future) State() State {
	return State(f.state.Load())
}

// Done is closed once the task has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the task settles.
func (f *Future) Result() Result {
	<-f.done
	return f.res
}

// Wait blocks until the task settles or ctx ends. Abandoning the wait does not
// cancel the load.
func (f *Future) Wait(ctx context.Context) (*Resource, error) {
	select {
	case <-f.done:
		return f.res.Resource, f.res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) setState(s State) {
	f.state.Store(int32(s))
}

func (f *Future) settle(res Result) {
	f.once.Do(func() {
		res.URL = f.task.URL
		f.res = res
		if res.Err != nil {
			f.setState(StateFailed)
		} else {
			f.setState(StateDone)
		}
		close(f.done)
	})
}

// WaitAll collects the results of futures in order. Futures still pending when
// ctx ends report ctx.Err().
func WaitAll(ctx context.Context, futures []*Future) []Result {
	results := make([]Result, len(futures))
	for i, f := range futures {
		select {
		case <-f.Done():
			results[i] = f.Result()
		case <-ctx.Done():
			results[i] = Result{URL: f.task.URL, Err: ctx.Err()}
		}
	}
	return results
}
