package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordio/leadertrack"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, info := range []leadertrack.LeaderInfo{
		{Host: "master-1.example.com", Port: 16000, StartCode: 1614588731984},
		{Host: "10.0.0.7", Port: 1, StartCode: 0},
		{Host: "h", Port: math.MaxUint16, StartCode: math.MaxUint64},
	} {
		decoded := Decode(Encode(info))
		require.NotNil(t, decoded)
		assert.Equal(t, info, *decoded)
	}
}

func TestEncodeStartsWithMagic(t *testing.T) {
	t.Parallel()

	b := Encode(leadertrack.LeaderInfo{Host: "master", Port: 16000, StartCode: 1})
	require.True(t, len(b) > len(MagicPrefix))
	assert.Equal(t, MagicPrefix, string(b[:len(MagicPrefix)]))
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	valid := Encode(leadertrack.LeaderInfo{Host: "master", Port: 16000, StartCode: 42})

	for name, payload := range map[string][]byte{
		"nil":              nil,
		"empty":            {},
		"truncated magic":  []byte("PB"),
		"wrong magic":      []byte("JSON{\"host\":\"master\"}"),
		"magic only":       []byte(MagicPrefix),
		"garbage record":   append([]byte(MagicPrefix), 0xff, 0xff, 0xff, 0xff),
		"truncated record": valid[:len(valid)-3],
		"missing magic":    valid[len(MagicPrefix):],
	} {
		assert.Nil(t, Decode(payload), "payload %q must not decode", name)
	}
}

func TestDecodeRequiresHost(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Decode(Encode(leadertrack.LeaderInfo{Port: 16000, StartCode: 42})))
}
