package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/Arceliar/phony"
	"github.com/encodeous/strand/state"
	"github.com/google/uuid"
)

// conn is a handshaken TCP connection to one neighbour. Writes go through the inbox so Send never
// blocks the node loop.
type conn struct {
	phony.Inbox
	id       uuid.UUID
	remote   state.NodeId
	c        net.Conn
	outbound bool
	addr     string
	closed   atomic.Bool
}

func (c *conn) Id() uuid.UUID {
	return c.id
}

func (c *conn) Node() state.NodeId {
	return c.remote
}

func (c *conn) Send(frame []byte) error {
	if c.closed.Load() {
		return state.ErrLinkClosed
	}
	if len(frame) > state.MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(frame), state.MaxFrameSize)
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	c.Act(nil, func() {
		if c.closed.Load() {
			return
		}
		if _, err := c.c.Write(buf); err != nil {
			_ = c.Close()
		}
	})
	return nil
}

func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.c.Close()
}

// dialer returns the node that opened the connection
func (c *conn) dialer(self state.NodeId) state.NodeId {
	if c.outbound {
		return self
	}
	return c.remote
}

func writeHello(c net.Conn, id state.NodeId) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	_, err := c.Write(buf[:])
	return err
}

func readHello(c net.Conn) (state.NodeId, error) {
	var buf [8]byte
	if _, err := io.ReadFull(c, buf[:]); err != nil {
		return 0, err
	}
	id := state.NodeId(binary.BigEndian.Uint64(buf[:]))
	if id == 0 {
		return 0, state.ErrZeroNodeId
	}
	return id, nil
}

// handshake exchanges node ids, bounded by state.HelloTimeout
func handshake(c net.Conn, self state.NodeId) (state.NodeId, error) {
	if err := c.SetDeadline(time.Now().Add(state.HelloTimeout)); err != nil {
		return 0, err
	}
	if err := writeHello(c, self); err != nil {
		return 0, err
	}
	id, err := readHello(c)
	if err != nil {
		return 0, err
	}
	return id, c.SetDeadline(time.Time{})
}

// readFrame reads one length-prefixed frame
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	l := binary.BigEndian.Uint32(lenBuf[:])
	if uint64(l) > uint64(state.MaxFrameSize) {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d: %w", l, state.MaxFrameSize, state.ErrMalformedFrame)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
