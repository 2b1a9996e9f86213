// Package workspace holds the per-candidate application aggregates that live
// between login and logout. Each workspace has its own mutex so a candidate's
// requests apply one at a time while different candidates proceed in
// parallel.
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"admission/internal/application/models"
	"admission/internal/platform/metrics"
	id "admission/pkg/domain"
)

// Loader builds the aggregate for owner when its workspace is opened.
type Loader func(ctx context.Context, owner id.ApplicationID) (*models.Application, error)

// Workspace serialises access to one candidate's aggregate.
type Workspace struct {
	mu       sync.Mutex
	app      *models.Application
	openedAt time.Time
	// lastUsed is unix nanoseconds of the latest Open or Get.
	lastUsed atomic.Int64
}

// Do runs fn with exclusive access to the aggregate.
func (w *Workspace) Do(fn func(app *models.Application) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.app)
}

func (w *Workspace) OpenedAt() time.Time { return w.openedAt }

func (w *Workspace) LastUsed() time.Time { return time.Unix(0, w.lastUsed.Load()) }

func (w *Workspace) touch(now time.Time) { w.lastUsed.Store(now.UnixNano()) }

// Registry maps owners to open workspaces. Loads run outside the registry
// lock; concurrent opens for one owner share a single load.
type Registry struct {
	mu      sync.Mutex
	spaces  map[id.ApplicationID]*Workspace
	loads   singleflight.Group
	load    Loader
	clock   func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

func NewRegistry(load Loader, opts ...Option) *Registry {
	r := &Registry{
		spaces: make(map[id.ApplicationID]*Workspace),
		load:   load,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the owner's workspace, loading it on first use. Opening an
// already open workspace keeps the in-memory state.
func (r *Registry) Open(ctx context.Context, owner id.ApplicationID) (*Workspace, error) {
	if ws := r.lookup(owner); ws != nil {
		return ws, nil
	}
	v, err, _ := r.loads.Do(owner.String(), func() (any, error) {
		if ws := r.lookup(owner); ws != nil {
			return ws, nil
		}
		app, err := r.load(ctx, owner)
		if err != nil {
			return nil, err
		}
		now := r.clock()
		ws := &Workspace{app: app, openedAt: now}
		ws.touch(now)

		r.mu.Lock()
		r.spaces[owner] = ws
		r.gauge()
		r.mu.Unlock()

		r.logger.DebugContext(ctx, "workspace opened",
			"owner", owner,
			"completed", app.IsCompleted(),
			"step", app.CurrentStep(),
		)
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

// lookup returns the open workspace for owner, marking it used, or nil.
func (r *Registry) lookup(owner id.ApplicationID) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.spaces[owner]
	if !ok {
		return nil
	}
	ws.touch(r.clock())
	return ws
}

// Get is Open under another name for request paths. A token that outlived a
// process restart finds its workspace rebuilt from storage.
func (r *Registry) Get(ctx context.Context, owner id.ApplicationID) (*Workspace, error) {
	return r.Open(ctx, owner)
}

// Close disposes the workspace. Unsaved changes are discarded.
func (r *Registry) Close(ctx context.Context, owner id.ApplicationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[owner]; !ok {
		return
	}
	delete(r.spaces, owner)
	r.gauge()
	r.logger.DebugContext(ctx, "workspace closed", "owner", owner)
}

// Sweep closes workspaces unused for longer than idle and returns how many
// were removed. Candidates whose token expired without a logout are
// collected here.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := r.clock().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for owner, ws := range r.spaces {
		if ws.LastUsed().Before(cutoff) {
			delete(r.spaces, owner)
			removed++
		}
	}
	if removed > 0 {
		r.gauge()
		r.logger.DebugContext(ctx, "idle workspaces swept", "count", removed)
	}
	return removed
}

// IsOpen reports whether owner currently has a workspace.
func (r *Registry) IsOpen(owner id.ApplicationID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.spaces[owner]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

func (r *Registry) gauge() {
	if r.metrics != nil {
		r.metrics.ActiveWorkspaces.Set(float64(len(r.spaces)))
	}
}
