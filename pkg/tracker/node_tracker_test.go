package tracker

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordio/leadertrack/internal/fixtures"
	"github.com/coordio/leadertrack/pkg/store"
)

const testPath = "/leadertrack/leader"

func startedTracker(t *testing.T, st store.Store) *NodeTracker {
	t.Helper()
	nt := NewNodeTracker(fixtures.NewTestLogger(t), st, testPath, func(reason string, err error) {
		t.Errorf("unexpected abort: %s: %v", reason, err)
	})
	require.NoError(t, nt.Start())
	t.Cleanup(nt.Stop)
	return nt
}

func eventuallyCached(t *testing.T, nt *NodeTracker, expected []byte) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bytes.Equal(nt.GetData(false), expected)
	}, 1*time.Second, 1*time.Millisecond)
}

func TestTrackerCacheFollowsEvents(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	nt := startedTracker(t, m)
	assert.Nil(t, nt.GetData(false))

	m.Put(testPath, []byte("a"))
	eventuallyCached(t, nt, []byte("a"))

	m.Put(testPath, []byte("b"))
	eventuallyCached(t, nt, []byte("b"))

	m.Delete(testPath)
	eventuallyCached(t, nt, nil)
}

func TestTrackerStartWithExistingNode(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	m.Put(testPath, []byte("a"))

	nt := startedTracker(t, m)
	// Populated by the initial synchronous read, no event needed.
	assert.Equal(t, []byte("a"), nt.GetData(false))
}

func TestTrackerDisconnectKeepsSurvivingNode(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	m.Put(testPath, []byte("a"))
	nt := startedTracker(t, m)

	// The node outlives the session loss, so the re-check after the
	// Disconnected event re-reads it instead of clearing the cache.
	m.Disconnect()
	assert.Equal(t, []byte("a"), nt.GetData(false))

	// The watch survives the disconnection too.
	m.Put(testPath, []byte("a2"))
	eventuallyCached(t, nt, []byte("a2"))
}

func TestTrackerDeleteWithImmediateRecreate(t *testing.T) {
	t.Parallel()

	events := make(chan store.Event, 1)

	var mu sync.Mutex
	current := []byte("b")

	st := &fixtures.MockStore{TB: t,
		FnGet: func(path string) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			return current, nil
		},
		FnExistsWatch: func(path string) (bool, error) {
			return true, nil
		},
		FnEvents: func(path string) <-chan store.Event {
			return events
		},
	}

	nt := startedTracker(t, st)
	require.Equal(t, []byte("b"), nt.GetData(false))

	// The node is deleted and recreated before the one-shot watch is
	// re-armed: the only event delivered is the deletion, but the
	// existence check reports the node is back.  The recreated content
	// must end up in the cache, not nil.
	mu.Lock()
	current = []byte("b2")
	mu.Unlock()
	events <- store.Event{Type: store.Deleted, Path: testPath}

	eventuallyCached(t, nt, []byte("b2"))
}

func TestBlockUntilAvailableWakesOnPopulate(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	nt := startedTracker(t, m)

	results := make(chan []byte)
	for i := 0; i < 3; i++ {
		go func() {
			results <- nt.BlockUntilAvailable(0)
		}()
	}

	m.Put(testPath, []byte("a"))

	// Every waiter wakes on the same state change.
	for i := 0; i < 3; i++ {
		select {
		case data := <-results:
			assert.Equal(t, []byte("a"), data)
		case <-time.After(1 * time.Second):
			t.Fatal("waiter did not wake")
		}
	}
}

func TestBlockUntilAvailableWakesOnStop(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	nt := startedTracker(t, m)

	result := make(chan []byte)
	go func() {
		result <- nt.BlockUntilAvailable(0)
	}()

	// Give the waiter a moment to block before stopping.
	time.Sleep(10 * time.Millisecond)
	nt.Stop()

	select {
	case data := <-result:
		assert.Nil(t, data)
	case <-time.After(1 * time.Second):
		t.Fatal("waiter did not wake on stop")
	}
}

func TestBlockUntilAvailableTimeout(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	nt := startedTracker(t, m)

	start := time.Now()
	assert.Nil(t, nt.BlockUntilAvailable(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	nt := startedTracker(t, m)
	nt.Stop()
	nt.Stop()
}

func TestGetDataForceRefresh(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	current := []byte("stale")

	st := &fixtures.MockStore{TB: t,
		FnGet: func(path string) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			return current, nil
		},
		FnExistsWatch: func(path string) (bool, error) {
			return true, nil
		},
		FnEvents: func(path string) <-chan store.Event {
			return make(chan store.Event)
		},
	}

	nt := startedTracker(t, st)
	require.Equal(t, []byte("stale"), nt.GetData(false))

	// An out-of-band write the tracker never saw an event for.
	mu.Lock()
	current = []byte("fresh")
	mu.Unlock()

	assert.Equal(t, []byte("stale"), nt.GetData(false))
	assert.Equal(t, []byte("fresh"), nt.GetData(true))
	// The refresh updated the cache as a side effect.
	assert.Equal(t, []byte("fresh"), nt.GetData(false))
}

func TestStartPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")

	st := &fixtures.MockStore{TB: t,
		FnExistsWatch: func(path string) (bool, error) {
			return false, boom
		},
		FnEvents: func(path string) <-chan store.Event {
			return make(chan store.Event)
		},
	}

	nt := NewNodeTracker(fixtures.NewTestLogger(t), st, testPath, nil)
	assert.ErrorIs(t, nt.Start(), boom)
}

func TestAbortOnEventReadFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	events := make(chan store.Event, 1)

	var mu sync.Mutex
	var getErr error

	st := &fixtures.MockStore{TB: t,
		FnGet: func(path string) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			return nil, getErr
		},
		FnExistsWatch: func(path string) (bool, error) {
			return true, nil
		},
		FnEvents: func(path string) <-chan store.Event {
			return events
		},
	}

	aborted := make(chan error, 1)
	nt := NewNodeTracker(fixtures.NewTestLogger(t), st, testPath, func(reason string, err error) {
		aborted <- err
	})
	require.NoError(t, nt.Start())
	t.Cleanup(nt.Stop)

	mu.Lock()
	getErr = boom
	mu.Unlock()
	events <- store.Event{Type: store.DataChanged, Path: testPath}

	select {
	case err := <-aborted:
		assert.ErrorIs(t, err, boom)
	case <-time.After(1 * time.Second):
		t.Fatal("abort hook not invoked")
	}
}
