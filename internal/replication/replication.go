// Package replication implements the two replication transports: UDP
// datagram mode (multicast or broadcast) and TCP mesh mode, with optional
// AES-CBC+HMAC-SHA256 encryption under a pre-shared key. It satisfies the
// apevents.Replicator interface so the event dispatcher can broadcast every
// local observation to peer controllers without knowing which transport is
// active.
package replication

import (
	"context"
	"encoding/json"
	"fmt"

	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/discovery"
	"steerd.dev/steerd/internal/logging"
)

// transport is the common shape both datagram and mesh implementations
// satisfy.
type transport interface {
	Send(method string, payload any) error
	Run(ctx context.Context) error
	Close() error
}

// Handler is called for every envelope received from a peer, after
// decryption and decoding.
type Handler func(method string, payload json.RawMessage)

// Mesh is the replication transport façade selected by network.option: 0
// (multicast), 1 (broadcast), or 2 (TCP mesh). Exactly one underlying
// transport is active at a time.
type Mesh struct {
	t       transport
	isMesh  bool
	meshRef *meshTransport
	handler Handler
	logger  *logging.Logger
}

// New builds a Mesh for net cfg. option 0/1 build a datagram transport;
// option 2 builds a TCP mesh transport listening on tcp_port.
func New(net config.Network, handler Handler, logger *logging.Logger) (*Mesh, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var crypt *cryptor
	if net.UseSymmEnc {
		c, err := newCryptor(net.SharedKey)
		if err != nil {
			return nil, fmt.Errorf("replication: %w", err)
		}
		crypt = c
	}

	m := &Mesh{handler: handler, logger: logger.WithComponent("replication")}

	switch net.Option {
	case 0, 1:
		dt, err := newDatagramTransport(net.IP, net.Port, net.Option == 1, crypt, logger)
		if err != nil {
			return nil, err
		}
		dt.onEnvelope = m.dispatch
		m.t = dt
	case 2:
		mt := newMeshTransport(fmt.Sprintf(":%d", net.TCPPort), crypt, logger)
		mt.onEnvelope = m.dispatch
		m.t = mt
		m.meshRef = mt
		m.isMesh = true
	default:
		return nil, fmt.Errorf("replication: unknown network.option %d", net.Option)
	}
	return m, nil
}

func (m *Mesh) dispatch(e envelope) {
	if m.handler != nil {
		m.handler(e.Method, e.Payload)
	}
}

// Broadcast implements apevents.Replicator.
func (m *Mesh) Broadcast(method string, payload any) error {
	return m.t.Send(method, payload)
}

// Run starts the transport's receive loop. It blocks until ctx is
// cancelled.
func (m *Mesh) Run(ctx context.Context) error {
	return m.t.Run(ctx)
}

// SetPeers updates the mesh transport's dial set from a fresh discovery
// result. It is a no-op in datagram mode, where there is no per-peer
// connection to maintain.
func (m *Mesh) SetPeers(peers []discovery.Peer) {
	if m.isMesh {
		m.meshRef.SetPeers(peers)
	}
}

// Close releases the transport's sockets.
func (m *Mesh) Close() error {
	return m.t.Close()
}
