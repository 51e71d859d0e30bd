// Package protocol implements the text wire format exchanged over links.
//
// Every frame starts with a single mode digit:
//
//	0<dest>|<nexthop>|<hops>;<dest>|<nexthop>|<hops>...   routing advertisement
//	1<dest>                                               withdrawal
//	2|<sender>|<receiver>|<origin unix millis>|<payload>  data
//
// Identifiers and timestamps are decimal. Separators are not escaped, so only the data payload,
// which is never split further, may contain '|' or ';'.
package protocol

import (
	"fmt"

	"github.com/encodeous/strand/state"
)

type Mode byte

const (
	ModeAdvertisement Mode = '0'
	ModeWithdrawal    Mode = '1'
	ModeData          Mode = '2'
)

const (
	fieldSep  = '|'
	recordSep = ';'
)

func (m Mode) String() string {
	switch m {
	case ModeAdvertisement:
		return "advertisement"
	case ModeWithdrawal:
		return "withdrawal"
	case ModeData:
		return "data"
	}
	return fmt.Sprintf("invalid(%q)", byte(m))
}

// Classify splits a frame into its mode and the mode-specific payload
func Classify(frame []byte) (Mode, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, fmt.Errorf("empty frame: %w", state.ErrMalformedFrame)
	}
	m := Mode(frame[0])
	switch m {
	case ModeAdvertisement, ModeWithdrawal, ModeData:
		return m, frame[1:], nil
	}
	return m, nil, fmt.Errorf("unknown mode %q: %w", frame[0], state.ErrMalformedFrame)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), state.ErrMalformedFrame)
}
