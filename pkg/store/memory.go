package store

import (
	"sync"
)

// Memory is an in-process Store.  It backs unit tests and single-process
// runs where no external coordination service is available.  Nodes live
// until deleted; there is no session to expire, so Put, Delete and
// Disconnect exist to let tests drive the event stream directly.
type Memory struct {
	mu    sync.Mutex
	nodes map[string][]byte
	subs  map[string]chan Event
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[string][]byte),
		subs:  make(map[string]chan Event),
	}
}

func (m *Memory) Get(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.nodes[path]
	if !ok {
		return nil, ErrNoNode
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) ExistsWatch(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribe(path)
	_, ok := m.nodes[path]
	return ok, nil
}

func (m *Memory) CreateEphemeral(path string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribe(path)
	if _, ok := m.nodes[path]; ok {
		return false, nil
	}
	m.nodes[path] = append([]byte(nil), data...)
	m.notify(Event{Type: Created, Path: path})
	return true, nil
}

func (m *Memory) Events(path string) <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribe(path)
}

// Put creates or replaces the node at path, simulating an out-of-band
// writer.
func (m *Memory) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.nodes[path]
	m.nodes[path] = append([]byte(nil), data...)
	if existed {
		m.notify(Event{Type: DataChanged, Path: path})
	} else {
		m.notify(Event{Type: Created, Path: path})
	}
}

// Delete removes the node at path, as a session expiry would for an
// ephemeral node.
func (m *Memory) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[path]; !ok {
		return
	}
	delete(m.nodes, path)
	m.notify(Event{Type: Deleted, Path: path})
}

// Disconnect delivers a Disconnected event to every watched path without
// touching stored data, mimicking a dropped session.
func (m *Memory) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path := range m.subs {
		m.notify(Event{Type: Disconnected, Path: path})
	}
}

// subscribe returns the channel for path, creating it on first use.
// Callers hold m.mu.
func (m *Memory) subscribe(path string) chan Event {
	ch, ok := m.subs[path]
	if !ok {
		ch = make(chan Event, eventBuffer)
		m.subs[path] = ch
	}
	return ch
}

// notify sends under m.mu, which keeps delivery in mutation order.  The send
// never blocks: once a subscriber lags more than eventBuffer events, further
// events are dropped rather than deadlocking mutations against the lock.
// Callers hold m.mu.
func (m *Memory) notify(ev Event) {
	ch, ok := m.subs[ev.Path]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
