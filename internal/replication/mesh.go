package replication

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"steerd.dev/steerd/internal/discovery"
	"steerd.dev/steerd/internal/logging"
)

const (
	meshMinBackoff = 100 * time.Millisecond
	meshMaxBackoff = 30 * time.Second
)

// meshTransport implements TCP mesh replication (network.option 2): one
// persistent outbound connection per known peer, reconnected with
// exponential backoff, plus a listener accepting inbound peer connections.
// Every frame on the wire is length-prefixed with a 4-byte big-endian
// length.
type meshTransport struct {
	listenAddr string
	crypt      *cryptor
	logger     *logging.Logger

	mu    sync.Mutex
	peers map[string]*meshPeer
	ln    net.Listener

	onEnvelope func(envelope)
}

type meshPeer struct {
	addr   string
	mu     sync.Mutex
	conn   net.Conn
	cancel context.CancelFunc
}

func newMeshTransport(listenAddr string, crypt *cryptor, logger *logging.Logger) *meshTransport {
	return &meshTransport{
		listenAddr: listenAddr,
		crypt:      crypt,
		logger:     logger.WithComponent("replication-mesh"),
		peers:      make(map[string]*meshPeer),
	}
}

// Run starts the inbound listener and blocks accepting connections until
// ctx is cancelled.
func (t *meshTransport) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp4", t.listenAddr)
	if err != nil {
		return fmt.Errorf("replication: listen %s: %w", t.listenAddr, err)
	}
	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Warn("accept failed", "error", err)
			continue
		}
		go t.readConn(ctx, conn)
	}
}

// SetPeers reconciles the set of dialed outbound peers against the latest
// discovery result: new peers get a reconnect loop started, peers no
// longer present are torn down.
func (t *meshTransport) SetPeers(peers []discovery.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	want := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		addr := p.String()
		want[addr] = struct{}{}
		if _, ok := t.peers[addr]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		mp := &meshPeer{addr: addr, cancel: cancel}
		t.peers[addr] = mp
		go t.dialLoop(ctx, mp)
	}

	for addr, mp := range t.peers {
		if _, ok := want[addr]; !ok {
			mp.cancel()
			delete(t.peers, addr)
		}
	}
}

func (t *meshTransport) dialLoop(ctx context.Context, mp *meshPeer) {
	backoff := meshMinBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := net.DialTimeout("tcp4", mp.addr, 5*time.Second)
		if err != nil {
			t.logger.Warn("dial peer failed, retrying", "peer", mp.addr, "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > meshMaxBackoff {
				backoff = meshMaxBackoff
			}
			continue
		}

		backoff = meshMinBackoff
		mp.mu.Lock()
		mp.conn = conn
		mp.mu.Unlock()

		t.readConn(ctx, conn)

		mp.mu.Lock()
		mp.conn = nil
		mp.mu.Unlock()
	}
}

// readConn reads length-prefixed frames from conn until it errs or ctx is
// cancelled, decoding and delivering each to onEnvelope.
func (t *meshTransport) readConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			if ctx.Err() == nil {
				t.logger.Debug("mesh connection closed", "error", err)
			}
			return
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n == 0 || n > 1<<20 {
			t.logger.Warn("mesh frame length out of bounds, dropping connection", "length", n)
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(conn, body); err != nil {
			t.logger.Debug("mesh connection closed mid-frame", "error", err)
			return
		}

		raw := body
		var err error
		if t.crypt != nil {
			raw, err = t.crypt.open(raw)
			if err != nil {
				t.logger.Warn("dropping undecryptable mesh frame", "error", err)
				continue
			}
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			t.logger.Warn("dropping malformed mesh frame", "error", err)
			continue
		}
		if t.onEnvelope != nil {
			t.onEnvelope(env)
		}
	}
}

// Send broadcasts one envelope to every currently-connected peer.
func (t *meshTransport) Send(method string, payload any) error {
	raw, err := encodeEnvelope(method, payload)
	if err != nil {
		return err
	}
	if t.crypt != nil {
		raw, err = t.crypt.seal(raw)
		if err != nil {
			return fmt.Errorf("replication: seal: %w", err)
		}
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(raw)))

	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for _, mp := range t.peers {
		mp.mu.Lock()
		conn := mp.conn
		mp.mu.Unlock()
		if conn == nil {
			continue
		}
		if _, err := conn.Write(lenBuf[:]); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := conn.Write(raw); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *meshTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, mp := range t.peers {
		mp.cancel()
	}
	if t.ln != nil {
		return t.ln.Close()
	}
	return nil
}
