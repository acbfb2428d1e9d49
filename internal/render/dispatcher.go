package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("render dispatcher closed")

// Result is delivered once per Submit.
type Result struct {
	Key   models.PageKey
	Image image.Image
	Err   error
	// Shared is true when the bitmap came from a render another Submit started.
	Shared bool
}

// Abandoned reports whether the render was cancelled before it finished.
func (r Result) Abandoned() bool {
	return errors.Is(r.Err, context.Canceled)
}

// Dispatcher deduplicates and bounds renders. Requests for a key already in flight
// attach to that render instead of starting another.
type Dispatcher struct {
	renderer Renderer
	sem      *semaphore.Weighted
	group    singleflight.Group
	base     context.Context
	stop     context.CancelFunc
	flights  map[string]*flight
	closed   bool
	wg       sync.WaitGroup
	logger   *zap.Logger
	mu       sync.Mutex
}

type flight struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets a logger for render events (submitted, deduped, abandoned).
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = utils.ComponentLogger(l, "render") }
}

// NewDispatcher creates a dispatcher running at most workers renders at once.
func NewDispatcher(r Renderer, workers int, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	base, stop := context.WithCancel(context.Background())
	d := &Dispatcher{
		renderer: r,
		sem:      semaphore.NewWeighted(int64(workers)),
		base:     base,
		stop:     stop,
		flights:  make(map[string]*flight),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit schedules req and calls done with the result on another goroutine.
// done is called exactly once unless Submit returns an error.
func (d *Dispatcher) Submit(req Request, done func(Result)) error {
	id := req.Key.String()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	f, inFlight := d.flights[id]
	if !inFlight {
		ctx, cancel := context.WithCancel(d.base)
		f = &flight{ctx: ctx, cancel: cancel}
		d.flights[id] = f
	}
	// DoChan is called under mu so a flight and its map entry come and go together.
	ch := d.group.DoChan(id, func() (interface{}, error) {
		return d.run(id, f, req)
	})
	d.wg.Add(1)
	d.mu.Unlock()

	if inFlight {
		d.logger.Debug("render deduped", zap.Stringer("key", req.Key))
	} else {
		d.logger.Debug("render submitted", zap.Stringer("key", req.Key), zap.Int("target_size", req.TargetSize))
	}

	go func() {
		defer d.wg.Done()
		res := <-ch
		out := Result{Key: req.Key, Err: res.Err, Shared: res.Shared}
		if res.Err == nil {
			out.Image = res.Val.(image.Image)
		}
		done(out)
	}()
	return nil
}

func (d *Dispatcher) run(id string, f *flight, req Request) (img image.Image, err error) {
	defer func() {
		d.mu.Lock()
		if d.flights[id] == f {
			delete(d.flights, id)
			d.group.Forget(id)
		}
		d.mu.Unlock()
		f.cancel()
	}()
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("%w: %s: panic: %v", models.ErrRenderFailed, req.Key, p)
		}
	}()

	if err := d.sem.Acquire(f.ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	img, err = d.renderer.Render(f.ctx, req)
	if ctxErr := f.ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrRenderFailed, req.Key, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: %s: renderer returned no image", models.ErrRenderFailed, req.Key)
	}
	return img, nil
}

// Abandon cancels the in-flight render for key. Waiters receive a Result whose
// Abandoned reports true; a later Submit for key starts a fresh render.
func (d *Dispatcher) Abandon(key models.PageKey) bool {
	id := key.String()
	d.mu.Lock()
	f, ok := d.flights[id]
	if ok {
		delete(d.flights, id)
		d.group.Forget(id)
	}
	d.mu.Unlock()
	if !ok {
		return false
	}
	f.cancel()
	d.logger.Debug("render abandoned", zap.Stringer("key", key))
	return true
}

// InFlight returns the number of distinct keys being rendered.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.flights)
}

// Close cancels every render and waits until all done callbacks have returned or
// ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.stop()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
