package leadertrack

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// LeaderInfo identifies one run of the elected leader process.  A restarted
// process on the same host and port carries a different StartCode, and is
// therefore a different leader.  Compare all three fields, not just the
// address.
type LeaderInfo struct {
	Host      string
	Port      uint32
	StartCode uint64
}

// Address returns the host:port the leader is reachable on.
func (li LeaderInfo) Address() string {
	return net.JoinHostPort(li.Host, strconv.FormatUint(uint64(li.Port), 10))
}

func (li LeaderInfo) String() string {
	return fmt.Sprintf("%s:%d/%d", li.Host, li.Port, li.StartCode)
}

// Runnable is a long running function intended to be launched in a goroutine.
type Runnable func(context.Context)

// Runner exposes a Runnable through an interface
type Runner interface {
	Run(context.Context)
}
