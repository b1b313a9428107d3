package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coordio/leadertrack/pkg/store"
)

// AbortFunc receives failures detected inside background event handling,
// where no caller is waiting on a return value.  The default hook logs the
// failure as fatal; tests and embedders inject their own.
type AbortFunc func(reason string, err error)

// NodeTracker watches a single path in the coordination store and caches its
// last known content.  A nil cache means the node is unknown or deleted.
// Readers never talk to the store unless they ask for a refresh; the cache
// follows store events, delivered in order for the path.
type NodeTracker struct {
	logger logrus.FieldLogger
	store  store.Store
	path   string
	abort  AbortFunc

	mu      sync.Mutex
	data    []byte
	stopped bool
	started bool
	changed chan struct{} // closed and replaced on every state change
	done    chan struct{}
}

// NewNodeTracker creates a tracker for path.  No store I/O happens until
// Start.  A nil abort falls back to a fatal log via logger.
func NewNodeTracker(logger logrus.FieldLogger, st store.Store, path string, abort AbortFunc) *NodeTracker {
	logger = logger.WithField("path", path)
	if abort == nil {
		abort = func(reason string, err error) {
			logger.WithError(err).Fatal(reason)
		}
	}
	return &NodeTracker{
		logger:  logger,
		store:   st,
		path:    path,
		abort:   abort,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Path returns the watched path.
func (nt *NodeTracker) Path() string {
	return nt.path
}

// Start installs the watch, primes the cache with one synchronous read, and
// launches the event loop.  An absent node is a normal empty result; any
// other store failure is returned.  Call once.
func (nt *NodeTracker) Start() error {
	// Subscribe before the initial read, so a node created in between is
	// still observed via its Created event.
	events := nt.store.Events(nt.path)
	if _, err := nt.store.ExistsWatch(nt.path); err != nil {
		return fmt.Errorf("starting tracker: %w", err)
	}

	data, err := nt.store.Get(nt.path)
	if err != nil && !errors.Is(err, store.ErrNoNode) {
		return fmt.Errorf("starting tracker: %w", err)
	}
	nt.setData(data)

	nt.mu.Lock()
	nt.started = true
	nt.mu.Unlock()

	go nt.run(events)
	return nil
}

// Stop wakes every blocked waiter and stops the event loop.  Idempotent.
func (nt *NodeTracker) Stop() {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if nt.stopped {
		return
	}
	nt.stopped = true
	close(nt.done)
	nt.broadcast()
}

// GetData returns the cached content, or nil when the node is absent.  With
// refresh set it performs one synchronous store read and updates the cache
// first; a read failure goes to the abort hook and the stale cache is
// returned.  Never blocks on the cache.
func (nt *NodeTracker) GetData(refresh bool) []byte {
	if refresh {
		data, err := nt.store.Get(nt.path)
		switch {
		case err == nil:
			nt.setData(data)
		case errors.Is(err, store.ErrNoNode):
			nt.setData(nil)
		default:
			nt.abort(fmt.Sprintf("refreshing %s", nt.path), err)
		}
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return nt.data
}

// BlockUntilAvailable waits until the cache is populated, the tracker is
// stopped, or timeout elapses (zero or negative waits forever), and returns
// whatever is cached at wakeup.  Safe for concurrent waiters; they all wake
// on the same state change.
func (nt *NodeTracker) BlockUntilAvailable(timeout time.Duration) []byte {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	nt.mu.Lock()
	for nt.data == nil && !nt.stopped {
		wakeup := nt.changed
		nt.mu.Unlock()
		select {
		case <-wakeup:
		case <-expired:
			nt.mu.Lock()
			defer nt.mu.Unlock()
			return nt.data
		}
		nt.mu.Lock()
	}
	defer nt.mu.Unlock()
	return nt.data
}

// run applies store events to the cache until the tracker stops or the
// store closes the channel.  It must stay quick: the store's dispatcher is
// waiting on it.
func (nt *NodeTracker) run(events <-chan store.Event) {
	for {
		select {
		case <-nt.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			nt.handleEvent(ev)
		}
	}
}

func (nt *NodeTracker) handleEvent(ev store.Event) {
	switch ev.Type {
	case store.Created, store.DataChanged:
		nt.readIntoCache(ev)
	case store.Deleted, store.Disconnected:
		// Re-arm the existence watch so the node reappearing is observed.
		// The node may already be back by the time the watch is armed; in
		// that case no further event is coming, so read it now.
		exists, err := nt.store.ExistsWatch(nt.path)
		if err != nil {
			nt.abort(fmt.Sprintf("rewatching %s after %v event", nt.path, ev.Type), err)
			nt.setData(nil)
			return
		}
		if exists {
			nt.readIntoCache(ev)
			return
		}
		nt.logger.WithField("event", ev.Type.String()).Debug("Cleared cache")
		nt.setData(nil)
	}
}

func (nt *NodeTracker) readIntoCache(ev store.Event) {
	data, err := nt.store.Get(nt.path)
	switch {
	case err == nil:
		nt.logger.WithField("event", ev.Type.String()).Debug("Updated cache")
		nt.setData(data)
	case errors.Is(err, store.ErrNoNode):
		// Deleted between the event firing and the read.
		nt.setData(nil)
	default:
		nt.abort(fmt.Sprintf("reading %s after %v event", nt.path, ev.Type), err)
	}
}

func (nt *NodeTracker) setData(data []byte) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.data = data
	nt.broadcast()
}

// broadcast wakes every waiter in BlockUntilAvailable.  Callers hold nt.mu.
func (nt *NodeTracker) broadcast() {
	close(nt.changed)
	nt.changed = make(chan struct{})
}
