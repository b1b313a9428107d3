package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"
)

// ZKConn is the subset of the ZooKeeper client used by the store.
type ZKConn interface {
	Get(path string) ([]byte, *zk.Stat, error)
	Exists(path string) (bool, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
}

// ZooKeeper is a Store backed by a ZooKeeper session.  ZooKeeper watches are
// one-shot, so the store runs one goroutine per watched path which re-arms
// the watch after every event and translates it for subscribers.  The
// session itself is injected and never closed by the store; the zk client
// handles reconnection.
type ZooKeeper struct {
	logger logrus.FieldLogger
	conn   ZKConn
	clck   clock.Clock
	retry  time.Duration

	mu      sync.Mutex
	watches map[string]chan Event
	closed  bool
	done    chan struct{}
}

var _ Store = (*ZooKeeper)(nil)

const defaultWatchRetry = 1 * time.Second

// channel depth per watched path; the consumer is a tracker doing a single
// cache update per event, so it drains quickly
const eventBuffer = 16

func NewZooKeeper(logger logrus.FieldLogger, conn ZKConn) *ZooKeeper {
	return newZooKeeper(logger, conn, clock.Realtime(), defaultWatchRetry)
}

func newZooKeeper(logger logrus.FieldLogger, conn ZKConn, clck clock.Clock, retry time.Duration) *ZooKeeper {
	return &ZooKeeper{
		logger:  logger,
		conn:    conn,
		clck:    clck,
		retry:   retry,
		watches: make(map[string]chan Event),
		done:    make(chan struct{}),
	}
}

// Get returns the current content of path, or ErrNoNode.
func (s *ZooKeeper) Get(path string) ([]byte, error) {
	data, _, err := s.conn.Get(path)
	if err == zk.ErrNoNode {
		return nil, ErrNoNode
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// ExistsWatch reports whether path exists, and ensures the watch goroutine
// for path is running.
func (s *ZooKeeper) ExistsWatch(path string) (bool, error) {
	s.ensureWatch(path)
	exists, _, err := s.conn.Exists(path)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	return exists, nil
}

// CreateEphemeral creates an ephemeral node at path.  The watch goroutine is
// started before the create, so the node is observed whether or not the
// create wins the race.
func (s *ZooKeeper) CreateEphemeral(path string, data []byte) (bool, error) {
	s.ensureWatch(path)
	_, err := s.conn.Create(path, data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}
	return true, nil
}

// Events returns the notification channel for path, starting the watch
// goroutine on first use.
func (s *ZooKeeper) Events(path string) <-chan Event {
	return s.ensureWatch(path)
}

// Close stops all watch goroutines.  It does not close the injected session.
func (s *ZooKeeper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *ZooKeeper) ensureWatch(path string) chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.watches[path]; ok {
		return ch
	}
	ch := make(chan Event, eventBuffer)
	s.watches[path] = ch
	if !s.closed {
		go s.watchLoop(path, ch)
	}
	return ch
}

// watchLoop keeps a watch armed on path.  An exists watch fires for create,
// delete and data change, so a single ExistsW loop covers every structural
// event the subscriber cares about.
func (s *ZooKeeper) watchLoop(path string, events chan Event) {
	logger := s.logger.WithField("path", path)
	for {
		_, _, ch, err := s.conn.ExistsW(path)
		if err != nil {
			logger.WithError(err).Warn("Failed to arm watch")
			if !s.emit(events, Event{Type: Disconnected, Path: path}) {
				return
			}
			if !s.pause() {
				return
			}
			continue
		}

		select {
		case <-s.done:
			return
		case zev := <-ch:
			// The watch is spent after one delivery; loop to re-arm.
			ev, ok := translateEvent(path, zev)
			if !ok {
				continue
			}
			if !s.emit(events, ev) {
				return
			}
		}
	}
}

func (s *ZooKeeper) emit(events chan Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *ZooKeeper) pause() bool {
	t := s.clck.NewTimer(s.retry)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.done:
		return false
	}
}

// translateEvent maps a zk watch event onto the Store contract.  Session
// noise that does not invalidate the watched node is dropped.
func translateEvent(path string, zev zk.Event) (Event, bool) {
	switch zev.Type {
	case zk.EventNodeCreated:
		return Event{Type: Created, Path: path}, true
	case zk.EventNodeDataChanged:
		return Event{Type: DataChanged, Path: path}, true
	case zk.EventNodeDeleted:
		return Event{Type: Deleted, Path: path}, true
	case zk.EventNotWatching:
		// The server dropped the watch, usually on session loss.
		return Event{Type: Disconnected, Path: path}, true
	case zk.EventSession:
		switch zev.State {
		case zk.StateDisconnected, zk.StateExpired, zk.StateAuthFailed:
			return Event{Type: Disconnected, Path: path}, true
		}
	}
	return Event{}, false
}
