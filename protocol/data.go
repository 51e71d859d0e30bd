package protocol

import (
	"bytes"
	"strconv"
	"time"

	"github.com/encodeous/strand/state"
)

type Data struct {
	Sender   state.NodeId
	Receiver state.NodeId
	// Origin is when the sender built the frame, at millisecond precision
	Origin  time.Time
	Payload []byte
}

func EncodeData(d Data) []byte {
	buf := make([]byte, 0, 64+len(d.Payload))
	buf = append(buf, byte(ModeData), fieldSep)
	buf = strconv.AppendUint(buf, uint64(d.Sender), 10)
	buf = append(buf, fieldSep)
	buf = strconv.AppendUint(buf, uint64(d.Receiver), 10)
	buf = append(buf, fieldSep)
	buf = strconv.AppendInt(buf, d.Origin.UnixMilli(), 10)
	buf = append(buf, fieldSep)
	return append(buf, d.Payload...)
}

// DecodeData parses the payload of a mode 2 frame. The returned Payload aliases the input.
func DecodeData(payload []byte) (Data, error) {
	if len(payload) == 0 || payload[0] != fieldSep {
		return Data{}, malformed("data frame missing separator after mode")
	}
	fields := bytes.SplitN(payload[1:], []byte{fieldSep}, 4)
	if len(fields) != 4 {
		return Data{}, malformed("data frame has %d of 4 fields", len(fields))
	}
	sender, err := state.ParseNodeId(string(fields[0]))
	if err != nil {
		return Data{}, malformed("data sender: %v", err)
	}
	receiver, err := state.ParseNodeId(string(fields[1]))
	if err != nil {
		return Data{}, malformed("data receiver: %v", err)
	}
	ts, err := strconv.ParseUint(string(fields[2]), 10, 63)
	if err != nil {
		return Data{}, malformed("data timestamp: %v", err)
	}
	return Data{
		Sender:   sender,
		Receiver: receiver,
		Origin:   time.UnixMilli(int64(ts)),
		Payload:  fields[3],
	}, nil
}
