package protocol

import (
	"bytes"
	"strconv"

	"github.com/encodeous/strand/state"
)

// EncodeAdvertisement builds a mode 0 frame carrying entries in the given order
func EncodeAdvertisement(entries []state.RouteEntry) []byte {
	buf := make([]byte, 0, 1+len(entries)*24)
	buf = append(buf, byte(ModeAdvertisement))
	for i, e := range entries {
		if i > 0 {
			buf = append(buf, recordSep)
		}
		buf = strconv.AppendUint(buf, uint64(e.Dest), 10)
		buf = append(buf, fieldSep)
		buf = strconv.AppendUint(buf, uint64(e.NextHop), 10)
		buf = append(buf, fieldSep)
		buf = strconv.AppendInt(buf, int64(e.Hops), 10)
	}
	return buf
}

// DecodeAdvertisement parses the payload of a mode 0 frame. The NextHop of each entry is the
// one reported by the sender. Either every entry parses or none are returned.
func DecodeAdvertisement(payload []byte) ([]state.RouteEntry, error) {
	if len(payload) == 0 {
		return nil, malformed("advertisement has no entries")
	}
	records := bytes.Split(payload, []byte{recordSep})
	entries := make([]state.RouteEntry, 0, len(records))
	for i, rec := range records {
		fields := bytes.Split(rec, []byte{fieldSep})
		if len(fields) != 3 {
			return nil, malformed("advertisement entry %d has %d fields", i, len(fields))
		}
		dest, err := state.ParseNodeId(string(fields[0]))
		if err != nil {
			return nil, malformed("advertisement entry %d destination: %v", i, err)
		}
		nh, err := state.ParseNodeId(string(fields[1]))
		if err != nil {
			return nil, malformed("advertisement entry %d next hop: %v", i, err)
		}
		hops, err := strconv.ParseUint(string(fields[2]), 10, 64)
		if err != nil || hops < 1 || hops > state.MaxHops {
			return nil, malformed("advertisement entry %d hop count %q", i, fields[2])
		}
		entries = append(entries, state.RouteEntry{Dest: dest, NextHop: nh, Hops: int(hops)})
	}
	return entries, nil
}

func EncodeWithdrawal(dest state.NodeId) []byte {
	buf := make([]byte, 0, 21)
	buf = append(buf, byte(ModeWithdrawal))
	return strconv.AppendUint(buf, uint64(dest), 10)
}

func DecodeWithdrawal(payload []byte) (state.NodeId, error) {
	dest, err := state.ParseNodeId(string(payload))
	if err != nil {
		return 0, malformed("withdrawal destination: %v", err)
	}
	return dest, nil
}
