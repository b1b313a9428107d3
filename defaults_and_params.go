package leadertrack

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// DefaultZkNodes is the default list of ZooKeeper servers.
var DefaultZkNodes = []string{"127.0.0.1:2181"}

const (
	// DefaultZkTimeout is the default ZooKeeper session timeout.
	DefaultZkTimeout = 10 * time.Second
	// DefaultLeaderPath is the default znode holding the leader address.
	DefaultLeaderPath = "/leadertrack/leader"
	// DefaultBackupPath is the default parent znode for standby publications.
	DefaultBackupPath = "/leadertrack/backup"
	// DefaultLogInterval is the default interval between leader status log lines.
	DefaultLogInterval = 1 * time.Minute
)

const (
	// ParamZkNodes is the name of parameter with the list of ZooKeeper servers.
	ParamZkNodes = "zk-nodes"
	// ParamZkTimeout is the name of parameter with the ZooKeeper session timeout.
	ParamZkTimeout = "zk-timeout"
	// ParamLeaderPath is the name of parameter with the znode holding the leader address.
	ParamLeaderPath = "leader-path"
	// ParamBackupPath is the name of parameter with the parent znode for standby publications.
	ParamBackupPath = "backup-path"
	// ParamPublish makes the process publish its own address as a leader candidate.
	ParamPublish = "publish"
	// ParamPublishHost is the name of parameter with the host to publish.
	ParamPublishHost = "publish-host"
	// ParamPublishPort is the name of parameter with the port to publish.
	ParamPublishPort = "publish-port"
	// ParamLogInterval is the name of parameter with the interval between leader status log lines.
	ParamLogInterval = "log-interval"
)

// AddFlags adds relevant parameters.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamZkNodes, strings.Join(DefaultZkNodes, ","), "Comma-separated list of ZooKeeper servers")
	fs.Duration(ParamZkTimeout, DefaultZkTimeout, "ZooKeeper session timeout")
	fs.String(ParamLeaderPath, DefaultLeaderPath, "Znode holding the leader address")
	fs.String(ParamBackupPath, DefaultBackupPath, "Parent znode for standby publications")
	fs.Bool(ParamPublish, false, "Publish this process as a leader candidate")
	fs.String(ParamPublishHost, "", "Host to publish, defaults to the OS hostname")
	fs.Uint32(ParamPublishPort, 0, "Port to publish")
	fs.Duration(ParamLogInterval, DefaultLogInterval, "How often to log the tracked leader")
}
