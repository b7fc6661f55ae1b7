package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gopaper/inkstore"
	"github.com/gopaper/inkstore/cache"
)

// Event announces the outcome of one rasterization job.
type Event struct {
	Handle inkstore.Handle
	// Err is nil when tiles were installed, and carries the rasterization
	// failure otherwise. Cancelled jobs emit no event.
	Err error
}

// Dispatcher drives asynchronous rendering for one store. RequestRender
// claims dirty strokes, checks the shared tile cache, and queues cache
// misses on the worker pool; results install back through the store's
// versioned merge. The dispatcher registers itself as the store's render
// invalidation hook so jobs for removed or restored-away strokes are
// cancelled instead of running to a discarded result.
//
// Dispatcher is safe for concurrent use, though a typical application calls
// RequestRender from the document's owner goroutine only.
type Dispatcher struct {
	store *inkstore.Store
	pool  *workerPool
	tiles *cache.Cache[cache.Key, []inkstore.RenderTile]

	mu       sync.Mutex
	inflight map[inkstore.Handle]*renderJob
	subs     []func(Event)
	closed   bool
}

// renderJob identifies one queued rasterization. The pointer doubles as the
// job's identity: when a claim for the same handle supersedes an older one,
// the older job must not remove or cancel the newer entry.
type renderJob struct {
	cancel context.CancelFunc
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	workers     int
	cacheBudget int
}

// WithWorkers sets the rasterization worker count. Defaults to GOMAXPROCS.
func WithWorkers(n int) DispatcherOption {
	return func(o *dispatcherOptions) { o.workers = n }
}

// WithCacheBudget sets the shared tile cache byte budget.
func WithCacheBudget(bytes int) DispatcherOption {
	return func(o *dispatcherOptions) { o.cacheBudget = bytes }
}

// NewDispatcher creates a dispatcher over the store and registers its
// cancellation hook.
func NewDispatcher(store *inkstore.Store, opts ...DispatcherOption) *Dispatcher {
	var o dispatcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	d := &Dispatcher{
		store:    store,
		pool:     newWorkerPool(o.workers),
		tiles:    cache.New(o.cacheBudget, cache.KeyHasher, tileCost),
		inflight: make(map[inkstore.Handle]*renderJob),
	}
	store.SetRenderInvalidation(d.cancelHandles)
	return d
}

// Subscribe registers a callback for job outcomes. Callbacks run on worker
// goroutines and must not block; a UI layer typically posts a repaint.
func (d *Dispatcher) Subscribe(fn func(Event)) {
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
}

// RequestRender claims every stroke that needs (re)rendering for the
// viewport at the given zoom and queues the work. Cache hits install
// synchronously without touching the pool. Returns the number of jobs
// queued or satisfied.
func (d *Dispatcher) RequestRender(viewport inkstore.Rect, zoom float64) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	d.mu.Unlock()

	extended := viewport.ExpandByFactor(inkstore.ViewportMarginFactor)
	candidates := d.store.RenderCandidates(viewport, zoom, false)
	for _, cand := range candidates {
		full := extended.Contains(cand.Stroke.Bounds())
		if full && d.installFromCache(cand, zoom, extended) {
			continue
		}
		d.spawn(cand, extended, zoom, full)
	}
	return len(candidates)
}

// Rerender forces every stroke intersecting the viewport back through the
// pipeline, failed ones included.
func (d *Dispatcher) Rerender(viewport inkstore.Rect, zoom float64) int {
	extended := viewport.ExpandByFactor(inkstore.ViewportMarginFactor)
	candidates := d.store.RenderCandidates(viewport, zoom, true)
	for _, cand := range candidates {
		d.spawn(cand, extended, zoom, extended.Contains(cand.Stroke.Bounds()))
	}
	return len(candidates)
}

// CacheStats exposes the tile cache counters.
func (d *Dispatcher) CacheStats() cache.Stats { return d.tiles.Stats() }

// Close unregisters the store hook, cancels in-flight jobs and stops the
// pool. The dispatcher is unusable afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	cancels := make([]context.CancelFunc, 0, len(d.inflight))
	for _, job := range d.inflight {
		cancels = append(cancels, job.cancel)
	}
	d.mu.Unlock()

	d.store.SetRenderInvalidation(nil)
	for _, cancel := range cancels {
		cancel()
	}
	d.pool.close()
}

// installFromCache satisfies a claim from previously rendered tiles of
// identical content. Cached tiles are origin relative; they are placed at
// the stroke's current bounds, which is what lets a pasted duplicate paint
// without rasterizing.
func (d *Dispatcher) installFromCache(cand inkstore.RenderCandidate, zoom float64, viewport inkstore.Rect) bool {
	key := cache.Key{Content: cand.Stroke.ContentHash(), Zoom: cache.ZoomBucket(zoom)}
	cached, ok := d.tiles.Get(key)
	if !ok {
		return false
	}
	origin := cand.Stroke.Bounds().Min
	tiles := make([]inkstore.RenderTile, len(cached))
	for i, t := range cached {
		tiles[i] = inkstore.RenderTile{Rect: t.Rect.Translate(origin), Image: t.Image}
	}
	if err := d.store.InstallRendering(cand.Handle, cand.Version, zoom, viewport, true, tiles); err != nil {
		return false
	}
	d.emit(Event{Handle: cand.Handle})
	return true
}

// spawn queues one rasterization job for a claimed candidate.
func (d *Dispatcher) spawn(cand inkstore.RenderCandidate, region inkstore.Rect, zoom float64, full bool) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &renderJob{cancel: cancel}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cancel()
		d.store.ReleaseRender(cand.Handle, cand.Version)
		return
	}
	d.inflight[cand.Handle] = job
	d.mu.Unlock()

	d.pool.submit(func() {
		defer d.finish(cand.Handle, job)
		tiles, err := rasterize(ctx, cand.Stroke, region, zoom)
		switch {
		case errors.Is(err, context.Canceled):
			d.store.ReleaseRender(cand.Handle, cand.Version)
		case err != nil:
			inkstore.Logger().Warn("render: rasterization failed",
				slog.String("kind", cand.Stroke.Kind().String()), slog.Any("err", err))
			d.store.MarkRenderFailed(cand.Handle, cand.Version)
			d.emit(Event{Handle: cand.Handle, Err: err})
		default:
			if full {
				d.cacheTiles(cand.Stroke, zoom, tiles)
			}
			if err := d.store.InstallRendering(cand.Handle, cand.Version, zoom, region, full, tiles); err != nil {
				// Superseded while rendering; the next request re-claims.
				return
			}
			d.emit(Event{Handle: cand.Handle})
		}
	})
}

// cacheTiles stores a full rendering keyed by content and zoom bucket,
// with rects rebased to the stroke origin so translated twins can reuse it.
func (d *Dispatcher) cacheTiles(s *inkstore.Stroke, zoom float64, tiles []inkstore.RenderTile) {
	if len(tiles) == 0 {
		return
	}
	origin := s.Bounds().Min
	rel := make([]inkstore.RenderTile, len(tiles))
	for i, t := range tiles {
		rel[i] = inkstore.RenderTile{
			Rect:  t.Rect.Translate(inkstore.Point{X: -origin.X, Y: -origin.Y}),
			Image: t.Image,
		}
	}
	d.tiles.Set(cache.Key{Content: s.ContentHash(), Zoom: cache.ZoomBucket(zoom)}, rel)
}

// finish releases a job's context and retires its inflight entry, but only
// if the entry still belongs to this job; a superseding claim for the same
// handle may have replaced it.
func (d *Dispatcher) finish(h inkstore.Handle, job *renderJob) {
	job.cancel()
	d.mu.Lock()
	if d.inflight[h] == job {
		delete(d.inflight, h)
	}
	d.mu.Unlock()
}

// cancelHandles is the store's invalidation hook: removed, trashed or
// restore-orphaned strokes get their in-flight jobs cancelled.
func (d *Dispatcher) cancelHandles(handles []inkstore.Handle) {
	d.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(handles))
	for _, h := range handles {
		if job, ok := d.inflight[h]; ok {
			cancels = append(cancels, job.cancel)
		}
	}
	d.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (d *Dispatcher) emit(ev Event) {
	d.mu.Lock()
	subs := make([]func(Event), len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// tileCost is the cache cost of one tile set: the pixel payloads dominate.
func tileCost(tiles []inkstore.RenderTile) int {
	n := 0
	for _, t := range tiles {
		if t.Image != nil {
			n += len(t.Image.Pix)
		}
	}
	return n
}
