// Package tcp carries links over TCP. Every connection opens with an 8 byte big-endian node id in
// each direction, followed by frames prefixed with their uint32 big-endian length.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/encodeous/strand/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

type Transport struct {
	id     state.NodeId
	listen string
	peers  []string
	log    *slog.Logger

	mu      sync.Mutex
	l       state.Listener
	ctx     context.Context
	cancel  context.CancelFunc
	ln      net.Listener
	conns   map[state.NodeId][]*conn
	learned map[string]state.NodeId // peer address -> node id seen in its hello
	dialing map[string]bool
	backoff *ttlcache.Cache[string, error]
	wg      sync.WaitGroup
}

// New creates a transport for node id. listen may be empty to only dial out.
func New(id state.NodeId, listen string, peers []string, log *slog.Logger) *Transport {
	if log == nil {
		log = slog.Default()
	}
	return &Transport{
		id:     id,
		listen: listen,
		peers:  peers,
		log:    log.With("transport", "tcp"),
	}
}

// Addr returns the bound listen address, or nil if the transport is not listening
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil {
		return nil
	}
	return t.ln.Addr()
}

func (t *Transport) Start(l state.Listener) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.l != nil {
		return errors.New("tcp transport is already started")
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.conns = make(map[state.NodeId][]*conn)
	t.learned = make(map[string]state.NodeId)
	t.dialing = make(map[string]bool)
	t.backoff = ttlcache.New[string, error](
		ttlcache.WithTTL[string, error](state.DialBackoffTTL),
		ttlcache.WithDisableTouchOnHit[string, error](),
	)

	if t.listen != "" {
		ln, err := net.Listen("tcp", t.listen)
		if err != nil {
			t.cancel()
			return fmt.Errorf("listen on %s: %w", t.listen, err)
		}
		t.ln = ln
		t.log.Info("listening", "addr", ln.Addr().String())
		t.wg.Add(1)
		go t.acceptLoop(ln)
	}
	t.l = l
	if len(t.peers) != 0 {
		t.wg.Add(1)
		go t.dialLoop()
	}
	return nil
}

// Stop closes the listener and every connection, and waits for all goroutines to exit
func (t *Transport) Stop() error {
	t.mu.Lock()
	if t.l == nil {
		t.mu.Unlock()
		return nil
	}
	t.cancel()
	var err error
	if t.ln != nil {
		err = t.ln.Close()
		t.ln = nil
	}
	for _, conns := range t.conns {
		for _, c := range conns {
			_ = c.Close()
		}
	}
	t.mu.Unlock()

	t.wg.Wait()

	t.mu.Lock()
	t.l = nil
	t.mu.Unlock()
	return err
}

func (t *Transport) acceptLoop(ln net.Listener) {
	defer t.wg.Done()
	for {
		c, err := ln.Accept()
		if err != nil {
			if t.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			t.log.Warn("failed to accept connection", "err", err)
			continue
		}
		t.wg.Add(1)
		go t.serve(c, false, "")
	}
}

func (t *Transport) dialLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(state.RedialDelay)
	defer ticker.Stop()
	for t.ctx.Err() == nil {
		t.probePeers()
		select {
		case <-ticker.C:
		case <-t.ctx.Done():
			return
		}
	}
}

// probePeers dials every configured peer that is neither connected nor backing off
func (t *Transport) probePeers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.backoff.DeleteExpired()
	for _, addr := range t.peers {
		if t.dialing[addr] || t.backoff.Has(addr) {
			continue
		}
		if id, ok := t.learned[addr]; ok && len(t.conns[id]) != 0 {
			continue
		}
		t.dialing[addr] = true
		t.wg.Add(1)
		go t.dial(addr)
	}
}

func (t *Transport) dial(addr string) {
	defer t.wg.Done()
	d := net.Dialer{Timeout: state.HelloTimeout}
	c, err := d.DialContext(t.ctx, "tcp", addr)
	if err != nil {
		t.mu.Lock()
		delete(t.dialing, addr)
		t.backoff.Set(addr, err, ttlcache.DefaultTTL)
		t.mu.Unlock()
		t.log.Debug("dial failed", "addr", addr, "err", err)
		return
	}
	t.wg.Add(1)
	go t.serve(c, true, addr)
}

func (t *Transport) serve(nc net.Conn, outbound bool, addr string) {
	defer t.wg.Done()
	remote, err := handshake(nc, t.id)
	if err == nil && remote == t.id {
		err = errors.New("connected to ourselves")
	}
	if err != nil {
		t.log.Debug("handshake failed", "remote", nc.RemoteAddr().String(), "err", err)
		_ = nc.Close()
		if outbound {
			t.mu.Lock()
			delete(t.dialing, addr)
			t.backoff.Set(addr, err, ttlcache.DefaultTTL)
			t.mu.Unlock()
		}
		return
	}

	c := &conn{id: uuid.New(), remote: remote, c: nc, outbound: outbound, addr: addr}
	l, replaced, ok := t.register(c)
	if outbound {
		t.mu.Lock()
		delete(t.dialing, addr)
		t.mu.Unlock()
	}
	if !ok {
		t.log.Debug("dropping duplicate connection", "neigh", remote, "outbound", outbound)
		_ = c.Close()
		return
	}
	if replaced != nil {
		t.log.Debug("replacing duplicate connection", "neigh", remote, "link", replaced.id)
		_ = replaced.Close()
	}
	t.log.Info("link up", "neigh", remote, "remote", nc.RemoteAddr().String(), "link", c.id)
	l.LinkConnected(c)

	for {
		frame, err := readFrame(nc)
		if err != nil {
			if !c.closed.Load() {
				t.log.Debug("link read failed", "neigh", remote, "err", err)
			}
			break
		}
		l.LinkReceivedFrame(c, frame)
	}
	_ = c.Close()
	t.unregister(c)
	t.log.Info("link down", "neigh", remote, "link", c.id)
	l.LinkDisconnected(c)
}

// register admits c unless a connection dialed by the smaller node id already exists. It may
// return an older connection that c supersedes.
func (t *Transport) register(c *conn) (state.Listener, *conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return nil, nil, false
	}
	if c.addr != "" {
		t.learned[c.addr] = c.remote
	}
	preferred := min(t.id, c.remote)
	var replaced *conn
	for _, o := range t.conns[c.remote] {
		if o.closed.Load() {
			continue
		}
		if o.dialer(t.id) == preferred || c.dialer(t.id) != preferred {
			return nil, nil, false
		}
		replaced = o
	}
	t.conns[c.remote] = append(t.conns[c.remote], c)
	return t.l, replaced, true
}

func (t *Transport) unregister(c *conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns := t.conns[c.remote]
	for i, o := range conns {
		if o == c {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(t.conns, c.remote)
	} else {
		t.conns[c.remote] = conns
	}
}
