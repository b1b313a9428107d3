package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/coordio/leadertrack"
)

// MagicPrefix marks a node payload as a protobuf-serialized record.  It is
// the first four bytes of every value written to the coordination store, and
// must be verified before the remainder is parsed.
const MagicPrefix = "PBUF"

// Protobuf field numbers of the payload.  The outer record has a single
// embedded message, the inner record carries the leader fields.
const (
	fieldLeader = 1

	fieldHost      = 1
	fieldPort      = 2
	fieldStartCode = 3
)

// Encode renders info as a store payload: MagicPrefix followed by the
// serialized record.
func Encode(info leadertrack.LeaderInfo) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, fieldHost, protowire.BytesType)
	inner = protowire.AppendString(inner, info.Host)
	inner = protowire.AppendTag(inner, fieldPort, protowire.VarintType)
	inner = protowire.AppendVarint(inner, uint64(info.Port))
	inner = protowire.AppendTag(inner, fieldStartCode, protowire.VarintType)
	inner = protowire.AppendVarint(inner, info.StartCode)

	buf := make([]byte, 0, len(MagicPrefix)+len(inner)+2)
	buf = append(buf, MagicPrefix...)
	buf = protowire.AppendTag(buf, fieldLeader, protowire.BytesType)
	buf = protowire.AppendBytes(buf, inner)
	return buf
}

// Decode parses a store payload.  It returns nil for anything that is not a
// well formed payload: missing or truncated magic, malformed record, or a
// record without a host.  Callers cannot distinguish a corrupt payload from
// an absent leader; publishers only ever write values produced by Encode.
func Decode(b []byte) *leadertrack.LeaderInfo {
	if len(b) < len(MagicPrefix) || string(b[:len(MagicPrefix)]) != MagicPrefix {
		return nil
	}

	inner := consumeLeaderRecord(b[len(MagicPrefix):])
	if inner == nil {
		return nil
	}

	info := &leadertrack.LeaderInfo{}
	for len(inner) > 0 {
		num, typ, n := protowire.ConsumeTag(inner)
		if n < 0 {
			return nil
		}
		inner = inner[n:]
		switch {
		case num == fieldHost && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(inner)
			if n < 0 {
				return nil
			}
			info.Host = v
			inner = inner[n:]
		case num == fieldPort && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(inner)
			if n < 0 {
				return nil
			}
			info.Port = uint32(v)
			inner = inner[n:]
		case num == fieldStartCode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(inner)
			if n < 0 {
				return nil
			}
			info.StartCode = v
			inner = inner[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, inner)
			if n < 0 {
				return nil
			}
			inner = inner[n:]
		}
	}
	if info.Host == "" {
		return nil
	}
	return info
}

// consumeLeaderRecord extracts the embedded leader record from the outer
// message, skipping unknown fields.
func consumeLeaderRecord(b []byte) []byte {
	var inner []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil
		}
		b = b[n:]
		if num == fieldLeader && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil
			}
			inner = v
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil
		}
		b = b[n:]
	}
	return inner
}
