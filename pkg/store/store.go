package store

import (
	"errors"
)

// EventType classifies a structural change to a watched path.
type EventType int

const (
	// Created indicates the node came into existence.
	Created EventType = iota
	// DataChanged indicates the node's content was replaced.
	DataChanged
	// Deleted indicates the node is gone, including via session expiry of an
	// ephemeral owner.
	Deleted
	// Disconnected indicates the store session dropped.  Watchers should
	// treat it like Deleted and re-check existence once the session is
	// back; the store client reconnects on its own.
	Disconnected
)

func (et EventType) String() string {
	switch et {
	case Created:
		return "created"
	case DataChanged:
		return "data-changed"
	case Deleted:
		return "deleted"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a change notification for a watched path.  Events for one path
// are delivered in the order the store observed them.
type Event struct {
	Type EventType
	Path string
}

// ErrNoNode is returned by Get when the path has no node.
var ErrNoNode = errors.New("node does not exist")

// Store is the contract this package's consumers have with the coordination
// service.  Implementations own watch re-arming and connection management;
// callers only read, publish and consume events.
type Store interface {
	// Get returns the current content of path, or ErrNoNode.
	Get(path string) ([]byte, error)

	// ExistsWatch reports whether path exists and ensures a watch is
	// installed either way.  Subscribing before reading closes the race
	// between an existence check and watch registration: a node created in
	// between is still observed through its Created event.
	ExistsWatch(path string) (bool, error)

	// CreateEphemeral creates an ephemeral node at path and ensures a watch
	// is installed whether or not the create wins.  Returns false if the
	// node already existed.
	CreateEphemeral(path string, data []byte) (bool, error)

	// Events delivers notifications for path until the store is closed.
	// Calling Events again for the same path returns the same channel.
	Events(path string) <-chan Event
}
