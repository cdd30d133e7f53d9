// Package mutation applies optimistic edits to a cached store and schedules
// the matching remote writes.
//
// Writes are either immediate or debounced per key. Every dispatched write
// carries a per-key sequence number; when a response arrives for a write
// that is no longer the latest issued for its key, it is discarded.
//
// A failed write is not rolled back. The local edit stays in the cache, the
// key is marked out of sync on the store, and its save status returns to
// Unsaved so the caller can retry. An explicit refetch reconciles.
package mutation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/store"
)

// DefaultWindow is the debounce window for content edits.
const DefaultWindow = time.Second

var (
	// ErrSuperseded is returned when a newer write for the same key was
	// issued while this one was in flight.
	ErrSuperseded = errors.New("write superseded by a newer edit")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("mutation coordinator closed")
)

// Status is the UI-facing save state of one key.
type Status int

const (
	// Saved means the server has the latest edit.
	Saved Status = iota
	// Unsaved means an edit is waiting or its last write failed.
	Unsaved
	// Saving means a write is in flight.
	Saving
)

func (s Status) String() string {
	switch s {
	case Unsaved:
		return "unsaved"
	case Saving:
		return "saving"
	default:
		return "saved"
	}
}

// Write performs one remote write and returns its failure, if any.
type Write func(ctx context.Context) *envelope.Error

// Tracker receives the pending/out-of-sync markers of every write.
// *store.Store satisfies it.
type Tracker interface {
	BeginWrite(key string)
	EndWrite(key string, outcome store.Outcome)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWindow overrides the debounce window.
func WithWindow(d time.Duration) Option {
	return func(c *Coordinator) { c.window = d }
}

// WithLogger logs failed background writes.
func WithLogger(l *security.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// OnStatus registers fn to observe every save status change. fn must not
// call back into the Coordinator.
func OnStatus(fn func(key string, s Status)) Option {
	return func(c *Coordinator) { c.listeners = append(c.listeners, fn) }
}

type debounced struct {
	timer *time.Timer
	write Write
}

// Coordinator serializes the bookkeeping of writes for one store.
type Coordinator struct {
	tracker   Tracker
	window    time.Duration
	logger    *security.Logger
	listeners []func(string, Status)

	// ctx bounds debounced writes, which have no caller context.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	seq    map[string]uint64
	status map[string]Status
	timers map[string]*debounced
	active int
	idle   []chan struct{}
	closed bool
}

// New creates a Coordinator that reports write markers to tracker.
func New(tracker Tracker, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		tracker: tracker,
		window:  DefaultWindow,
		ctx:     ctx,
		cancel:  cancel,
		seq:     make(map[string]uint64),
		status:  make(map[string]Status),
		timers:  make(map[string]*debounced),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the save status of key. Unknown keys are Saved.
func (c *Coordinator) Status(key string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[key]
}

// Immediate applies the local edit and sends the write right away. It
// returns nil on success, ErrSuperseded when a newer write for key won, or
// the *envelope.Error of a failed write.
func (c *Coordinator) Immediate(ctx context.Context, key string, apply func(), write Write) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.active++
	c.mu.Unlock()

	if apply != nil {
		apply()
	}
	return c.dispatch(ctx, key, write)
}

// Debounced applies the local edit and (re)starts the key's timer. Only the
// last write of a burst is sent, once the window has passed without a new
// edit for the same key.
func (c *Coordinator) Debounced(key string, apply func(), write Write) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if apply != nil {
		apply()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if prev := c.timers[key]; prev != nil {
		prev.timer.Stop()
	}
	d := &debounced{write: write}
	d.timer = time.AfterFunc(c.window, func() { c.fire(key, d) })
	c.timers[key] = d
	c.setStatusLocked(key, Unsaved)
	c.mu.Unlock()
	return nil
}

// Cancel drops the pending debounced write of key and clears its save
// status. A write for key already in flight settles as superseded.
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.timers[key]; d != nil {
		d.timer.Stop()
		delete(c.timers, key)
	}
	c.seq[key]++
	c.setStatusLocked(key, Saved)
}

func (c *Coordinator) fire(key string, d *debounced) {
	c.mu.Lock()
	if c.timers[key] != d || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.timers, key)
	c.active++
	c.mu.Unlock()

	if err := c.dispatch(c.ctx, key, d.write); err != nil && !errors.Is(err, ErrSuperseded) && c.logger != nil {
		c.logger.Error("debounced write failed for "+key, err)
	}
}

// Reorder applies an optimistic re-sort and issues one batched write. On
// failure refetch is called so the cache returns to the server's order.
func (c *Coordinator) Reorder(ctx context.Context, key string, apply func(), write Write, refetch func(context.Context) *envelope.Error) error {
	err := c.Immediate(ctx, key, apply, write)
	var failed *envelope.Error
	if errors.As(err, &failed) && refetch != nil {
		_ = refetch(ctx)
	}
	return err
}

// dispatch runs write under a fresh sequence number. The caller has
// already counted it in c.active.
func (c *Coordinator) dispatch(ctx context.Context, key string, write Write) error {
	c.mu.Lock()
	c.seq[key]++
	n := c.seq[key]
	c.setStatusLocked(key, Saving)
	c.mu.Unlock()
	c.tracker.BeginWrite(key)

	werr := write(ctx)

	c.mu.Lock()
	latest := c.seq[key] == n
	var outcome store.Outcome
	switch {
	case !latest:
		outcome = store.Stale
	case werr != nil:
		outcome = store.Failed
		c.setStatusLocked(key, Unsaved)
	case c.timers[key] != nil:
		// A newer edit is already waiting on its timer.
		outcome = store.Synced
		c.setStatusLocked(key, Unsaved)
	default:
		outcome = store.Synced
		c.setStatusLocked(key, Saved)
	}
	c.mu.Unlock()

	c.tracker.EndWrite(key, outcome)
	c.done()

	if !latest {
		return ErrSuperseded
	}
	if werr != nil {
		return werr
	}
	return nil
}

func (c *Coordinator) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active--
	if c.active == 0 {
		for _, ch := range c.idle {
			close(ch)
		}
		c.idle = nil
	}
}

func (c *Coordinator) setStatusLocked(key string, s Status) {
	if c.status[key] == s {
		return
	}
	if s == Saved {
		delete(c.status, key)
	} else {
		c.status[key] = s
	}
	for _, fn := range c.listeners {
		fn(key, s)
	}
}

// Flush sends every pending debounced write now and waits until no write
// is in flight. It returns the failures joined together.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	due := make(map[string]Write, len(c.timers))
	for key, d := range c.timers {
		d.timer.Stop()
		due[key] = d.write
		delete(c.timers, key)
	}
	c.active += len(due)
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	for key, write := range due {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.dispatch(ctx, key, write); err != nil && !errors.Is(err, ErrSuperseded) {
				emu.Lock()
				errs = append(errs, err)
				emu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := c.wait(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// wait blocks until no write is in flight or ctx is done.
func (c *Coordinator) wait(ctx context.Context) error {
	c.mu.Lock()
	if c.active == 0 {
		c.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	c.idle = append(c.idle, ch)
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all timers and drops their pending writes. Call Flush first
// to keep them. In-flight debounced writes are canceled.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for key, d := range c.timers {
		d.timer.Stop()
		delete(c.timers, key)
	}
	c.cancel()
}
