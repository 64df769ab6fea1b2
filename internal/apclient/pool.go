package apclient

import (
	"fmt"
	"path/filepath"
	"sync"

	"steerd.dev/steerd/internal/logging"
)

// Pool lazily dials and caches one SocketClient per hostapd management
// socket, keyed by the socket's file name under dir. Control loops never
// dial directly; they ask the pool for an id discovered by AP scanning.
type Pool struct {
	dir    string
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]*SocketClient
}

// NewPool constructs a Pool rooted at dir, the hostapd socket directory.
func NewPool(dir string, logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.Default()
	}
	return &Pool{
		dir:     dir,
		logger:  logger.WithComponent("apclient-pool"),
		clients: make(map[string]*SocketClient),
	}
}

// Client returns the cached SocketClient for id, dialing it on first use.
// A cached connection is returned as is, even if it has since failed; only
// Drop evicts it. A failed dial is not cached, so the next call dials again.
func (p *Pool) Client(id string) (APClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[id]; ok {
		return c, nil
	}
	path := filepath.Join(p.dir, id)
	c, err := NewSocketClient(path, p.logger)
	if err != nil {
		return nil, fmt.Errorf("apclient: pool dial %s: %w", id, err)
	}
	p.clients[id] = c
	return c, nil
}

// Drop closes and evicts id's cached connection, if any, so the next Client
// call redials instead of reusing it.
func (p *Pool) Drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[id]; ok {
		c.Close()
		delete(p.clients, id)
	}
}

// Close closes every cached connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for id, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, id)
	}
	return firstErr
}
