package state

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// NodeId uniquely names a node on the mesh. The zero value is never a valid id.
type NodeId uint64

// NewNodeId assigns the identity of a node. A requested value of zero draws a random one.
// Negative values are folded to their absolute value, so -x and x name the same node and
// nothing on the mesh detects the collision.
func NewNodeId(requested int64) NodeId {
	id := requested
	for id == 0 {
		id = rand.Int64()
		if rand.IntN(2) == 0 {
			id = -id
		}
	}
	if id < 0 {
		if id == math.MinInt64 {
			return NodeId(1 << 63)
		}
		id = -id
	}
	return NodeId(id)
}

// ParseNodeId parses a decimal node id
func ParseNodeId(s string) (NodeId, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	if v == 0 {
		return 0, ErrZeroNodeId
	}
	return NodeId(v), nil
}

func (id NodeId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id NodeId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeId) UnmarshalText(text []byte) error {
	v, err := ParseNodeId(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
