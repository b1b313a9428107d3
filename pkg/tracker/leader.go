package tracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coordio/leadertrack"
	"github.com/coordio/leadertrack/pkg/healthcheck"
	"github.com/coordio/leadertrack/pkg/store"
	"github.com/coordio/leadertrack/pkg/wire"
)

// LeaderTracker follows the leader node and answers "who is the leader"
// from the cache.  A payload that does not decode is reported as no leader;
// publishers only ever write values produced by wire.Encode, so in practice
// that means a foreign writer scribbled on the node.
type LeaderTracker struct {
	*NodeTracker
}

// NewLeaderTracker creates a tracker bound to the leader node at path.
// Call Start to begin tracking.
func NewLeaderTracker(logger logrus.FieldLogger, st store.Store, path string, abort AbortFunc) *LeaderTracker {
	return &LeaderTracker{
		NodeTracker: NewNodeTracker(logger, st, path, abort),
	}
}

// LeaderAddress returns the current leader, or nil if there is none.  With
// refresh set the store is consulted instead of the cache.
func (lt *LeaderTracker) LeaderAddress(refresh bool) *leadertrack.LeaderInfo {
	return wire.Decode(lt.GetData(refresh))
}

// HasLeader reports whether a leader is currently published.
func (lt *LeaderTracker) HasLeader() bool {
	return lt.GetData(false) != nil
}

// WaitForLeader blocks until a leader is published, the tracker stops, or
// timeout elapses (zero or negative waits forever).  Returns nil on
// timeout or stop.
func (lt *LeaderTracker) WaitForLeader(timeout time.Duration) *leadertrack.LeaderInfo {
	return wire.Decode(lt.BlockUntilAvailable(timeout))
}

// HealthChecks reports whether the tracker is running.
func (lt *LeaderTracker) HealthChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			lt.mu.Lock()
			defer lt.mu.Unlock()
			switch {
			case lt.stopped:
				return fmt.Sprintf("tracker for %s stopped", lt.path), healthcheck.Unhealthy
			case !lt.started:
				return fmt.Sprintf("tracker for %s not started", lt.path), healthcheck.Unhealthy
			default:
				return fmt.Sprintf("tracking %s", lt.path), healthcheck.Healthy
			}
		},
	}
}

// DeepChecks reports on the tracked leader itself.  No published leader is
// a degraded state, not a local fault.
func (lt *LeaderTracker) DeepChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			if info := lt.LeaderAddress(false); info != nil {
				return fmt.Sprintf("leader is %v", info), healthcheck.Healthy
			}
			return "no leader published", healthcheck.Unhealthy
		},
	}
}

// FetchLeaderAddress reads the leader node once, with no tracker and no
// cache to fall back on.  An absent or empty node is an error here, unlike
// the tracker's getters, and so is an undecodable payload: the caller asked
// for a point-in-time answer and there is none.
func FetchLeaderAddress(st store.Store, path string) (leadertrack.LeaderInfo, error) {
	data, err := st.Get(path)
	if err != nil {
		return leadertrack.LeaderInfo{}, fmt.Errorf("fetching leader address from %s: %w", path, err)
	}
	if len(data) == 0 {
		return leadertrack.LeaderInfo{}, fmt.Errorf("fetching leader address from %s: %w", path, store.ErrNoNode)
	}
	info := wire.Decode(data)
	if info == nil {
		return leadertrack.LeaderInfo{}, fmt.Errorf("leader node %s holds an undecodable payload", path)
	}
	return *info, nil
}

// PublishLeaderAddress writes info to an ephemeral node at path and leaves a
// watch on it, so the node vanishing with its session is observable.  The
// path is a parameter so standbys can publish under a backup path.  Returns
// false when the node already existed (lost the race); a watch is installed
// in both outcomes.
func PublishLeaderAddress(st store.Store, path string, info leadertrack.LeaderInfo) (bool, error) {
	created, err := st.CreateEphemeral(path, wire.Encode(info))
	if err != nil {
		return false, fmt.Errorf("publishing leader address to %s: %w", path, err)
	}
	return created, nil
}
