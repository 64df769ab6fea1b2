package control

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// SocketScanner discovers local AP bindings by listing the Unix domain
// sockets in a directory, one per hostapd-managed interface, and querying
// each socket for its own BSSID/SSID. It implements APDiscoveryScanner.
type SocketScanner struct {
	dir     string
	clients ClientProvider
	logger  *logging.Logger
}

// NewSocketScanner builds a scanner rooted at dir, using clients to dial
// any socket it finds there.
func NewSocketScanner(dir string, clients ClientProvider, logger *logging.Logger) *SocketScanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &SocketScanner{dir: dir, clients: clients, logger: logger.WithComponent("ap-discovery")}
}

// Scan implements APDiscoveryScanner.
func (s *SocketScanner) Scan() ([]*store.LocalAPBinding, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("control: read hostapd dir %s: %w", s.dir, err)
	}

	out := make([]*store.LocalAPBinding, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := e.Name()

		cl, err := s.clients.Client(id)
		if err != nil {
			s.logger.Warn("ap discovery: dial failed", "id", id, "error", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), apclient.RPCTimeout)
		reply, err := cl.GetClients(ctx, wire.MacAddr{})
		cancel()
		if err != nil {
			s.logger.Warn("ap discovery: get_clients failed", "id", id, "error", err)
			continue
		}

		out = append(out, &store.LocalAPBinding{
			ID:        id,
			IfaceName: filepath.Base(id),
			BSSID:     reply.BSSID,
			SSID:      reply.SSID,
			HT:        reply.HTSupported,
			VHT:       reply.VHTSupported,
		})
	}
	return out, nil
}
