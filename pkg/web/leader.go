package web

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/coordio/leadertrack/pkg/tracker"
)

type leaderHandler struct {
	logger  logrus.FieldLogger
	tracker *tracker.LeaderTracker
}

type leaderResponse struct {
	Host      string `json:"host"`
	Port      uint32 `json:"port"`
	StartCode uint64 `json:"start_code"`
	Address   string `json:"address"`
}

// leaderInfo serves the currently tracked leader.  ?refresh=true bypasses
// the cache with a direct store read.
func (lh *leaderHandler) leaderInfo(resp http.ResponseWriter, req *http.Request) {
	refresh := req.URL.Query().Get("refresh") == "true"

	info := lh.tracker.LeaderAddress(refresh)
	resp.Header().Set("content-type", "application/json")
	if info == nil {
		resp.WriteHeader(http.StatusNotFound)
		enc := jsoniter.NewEncoder(resp)
		_ = enc.Encode(map[string]string{"error": "no leader"})
		return
	}

	enc := jsoniter.NewEncoder(resp)
	_ = enc.Encode(leaderResponse{
		Host:      info.Host,
		Port:      info.Port,
		StartCode: info.StartCode,
		Address:   info.Address(),
	})
}
