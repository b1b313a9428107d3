package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordio/leadertrack"
	"github.com/coordio/leadertrack/internal/fixtures"
	"github.com/coordio/leadertrack/pkg/store"
	"github.com/coordio/leadertrack/pkg/tracker"
)

const testPath = "/leadertrack/leader"

var testLeader = leadertrack.LeaderInfo{Host: "master-1.example.com", Port: 16000, StartCode: 1614588731984}

func newTestServer(t *testing.T) (*httpServer, *store.Memory, *tracker.LeaderTracker) {
	t.Helper()

	m := store.NewMemory()
	lt := tracker.NewLeaderTracker(fixtures.NewTestLogger(t), m, testPath, func(reason string, err error) {
		t.Errorf("unexpected abort: %s: %v", reason, err)
	})
	require.NoError(t, lt.Start())
	t.Cleanup(lt.Stop)

	server, err := NewHttpServer(fixtures.NewTestLogger(t), lt, "127.0.0.1:0", true, true)
	require.NoError(t, err)
	return server, m, lt
}

func doRequest(server *httpServer, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	server.Router.ServeHTTP(rec, req)
	return rec
}

func TestLeaderEndpointNoLeader(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	rec := doRequest(server, "/leader")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("content-type"))
}

func TestLeaderEndpoint(t *testing.T) {
	t.Parallel()

	server, m, lt := newTestServer(t)
	_, err := tracker.PublishLeaderAddress(m, testPath, testLeader)
	require.NoError(t, err)
	require.Eventually(t, lt.HasLeader, 1*time.Second, 1*time.Millisecond)

	rec := doRequest(server, "/leader")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leaderResponse
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, leaderResponse{
		Host:      "master-1.example.com",
		Port:      16000,
		StartCode: 1614588731984,
		Address:   "master-1.example.com:16000",
	}, resp)
}

func TestLeaderEndpointRefresh(t *testing.T) {
	t.Parallel()

	server, m, _ := newTestServer(t)
	_, err := tracker.PublishLeaderAddress(m, testPath, testLeader)
	require.NoError(t, err)

	// ?refresh=true reads through to the store, no need to wait for the
	// event to settle.
	rec := doRequest(server, "/leader?refresh=true")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthcheckEndpoint(t *testing.T) {
	t.Parallel()

	server, m, lt := newTestServer(t)
	rec := doRequest(server, "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)

	// No leader makes the deep check degraded, not the healthcheck.
	rec = doRequest(server, "/deepcheck")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	_, err := tracker.PublishLeaderAddress(m, testPath, testLeader)
	require.NoError(t, err)
	require.Eventually(t, lt.HasLeader, 1*time.Second, 1*time.Millisecond)

	rec = doRequest(server, "/deepcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	rec := doRequest(server, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpvarDisabled(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	lt := tracker.NewLeaderTracker(fixtures.NewTestLogger(t), m, testPath, nil)
	require.NoError(t, lt.Start())
	t.Cleanup(lt.Stop)

	server, err := NewHttpServer(fixtures.NewTestLogger(t), lt, "127.0.0.1:0", false, true)
	require.NoError(t, err)

	rec := doRequest(server, "/expvar")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
