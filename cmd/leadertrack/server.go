package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/cenkalti/backoff"
	"github.com/go-zookeeper/zk"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/coordio/leadertrack"
	"github.com/coordio/leadertrack/pkg/store"
	"github.com/coordio/leadertrack/pkg/tracker"
	"github.com/coordio/leadertrack/pkg/web"
)

// Server is everything for running a single leader discovery node.
type Server struct {
	ZkNodes     []string
	ZkTimeout   time.Duration
	LeaderPath  string
	BackupPath  string
	Publish     bool
	PublishHost string
	PublishPort uint32
	LogInterval time.Duration

	Viper *viper.Viper
}

// Run runs the specified Server.
func (s *Server) Run(ctx context.Context) error {
	logger := logrus.StandardLogger()

	conn, sessionEvents, err := zk.Connect(s.ZkNodes, s.ZkTimeout, zk.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connecting to zookeeper: %w", err)
	}
	defer conn.Close()
	go logSessionEvents(logger, sessionEvents)

	st := store.NewZooKeeper(logger, conn)
	defer st.Close()

	lt := tracker.NewLeaderTracker(logger, st, s.LeaderPath, nil)
	if err := backoff.Retry(lt.Start, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return fmt.Errorf("starting leader tracker: %w", err)
	}
	defer lt.Stop()

	if s.Publish {
		if err := s.publish(ctx, logger, st); err != nil {
			return err
		}
	}

	ws, err := web.NewHttpServerFromViper(s.Viper, logger, lt)
	if err != nil {
		return err
	}

	var wg wait.Group
	defer wg.Wait()
	wg.StartWithContext(ctx, ws.Run)

	t := time.NewTicker(s.LogInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if info := lt.LeaderAddress(false); info != nil {
				logger.WithField("leader", info.String()).Info("Tracking leader")
			} else {
				logger.Info("No leader published")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// publish announces this process under the leader path, falling back to the
// backup path when another process won the race.
func (s *Server) publish(ctx context.Context, logger logrus.FieldLogger, st store.Store) error {
	host := s.PublishHost
	if host == "" {
		var err error
		host, err = os.Hostname()
		if err != nil {
			return fmt.Errorf("determining host to publish: %w", err)
		}
	}
	info := leadertrack.LeaderInfo{
		Host:      host,
		Port:      s.PublishPort,
		StartCode: uint64(time.Now().UnixMilli()),
	}

	var created bool
	op := func() error {
		var err error
		created, err = tracker.PublishLeaderAddress(st, s.LeaderPath, info)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return fmt.Errorf("publishing address: %w", err)
	}
	if created {
		logger.WithField("leader", info.String()).Info("Published as leader")
		return nil
	}

	// Lost the race; announce availability under the backup path instead.
	backupPath := s.BackupPath + "/" + info.Address()
	if _, err := tracker.PublishLeaderAddress(st, backupPath, info); err != nil {
		logger.WithError(err).WithField("path", backupPath).Warn("Failed to publish backup address")
		return nil
	}
	logger.WithField("path", backupPath).Info("Published as backup")
	return nil
}

func logSessionEvents(logger logrus.FieldLogger, events <-chan zk.Event) {
	for ev := range events {
		logger.WithFields(logrus.Fields{
			"state":  ev.State.String(),
			"server": ev.Server,
		}).Debug("Session event")
	}
}
