package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coordio/leadertrack/pkg/store"
)

// MockStore implements a mock store.Store from github.com/coordio/leadertrack/pkg/store
type MockStore struct {
	TB testing.TB

	FnGet             func(path string) ([]byte, error)
	FnExistsWatch     func(path string) (bool, error)
	FnCreateEphemeral func(path string, data []byte) (bool, error)
	FnEvents          func(path string) <-chan store.Event
}

var _ store.Store = (*MockStore)(nil)

func (m *MockStore) Get(path string) (p0 []byte, p1 error) {
	if m.FnGet != nil {
		return m.FnGet(path)
	}
	assert.Fail(m.TB, "Store.Get must not be called")
	return
}

func (m *MockStore) ExistsWatch(path string) (p0 bool, p1 error) {
	if m.FnExistsWatch != nil {
		return m.FnExistsWatch(path)
	}
	assert.Fail(m.TB, "Store.ExistsWatch must not be called")
	return
}

func (m *MockStore) CreateEphemeral(path string, data []byte) (p0 bool, p1 error) {
	if m.FnCreateEphemeral != nil {
		return m.FnCreateEphemeral(path, data)
	}
	assert.Fail(m.TB, "Store.CreateEphemeral must not be called")
	return
}

func (m *MockStore) Events(path string) (p0 <-chan store.Event) {
	if m.FnEvents != nil {
		return m.FnEvents(path)
	}
	assert.Fail(m.TB, "Store.Events must not be called")
	return
}
