package control

import (
	"context"
	"fmt"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/discovery"
	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/replication"
	"steerd.dev/steerd/internal/scheduler"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// ClientProvider resolves a binding's socket id to a live APClient. The
// daemon owns the actual connections; control loops never dial directly.
type ClientProvider interface {
	Client(id string) (apclient.APClient, error)
}

// ClientPollTask implements the client-poll control loop: for every known
// local binding, fetch the AP's client table, merge it into the store, and
// run kick_clients if kicking is enabled.
func ClientPollTask(reg *Registry, provider ClientProvider, st *store.Store, metric func() config.Metric, logger *logging.Logger) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		m := metric()
		var firstErr error
		for _, b := range reg.List() {
			cl, err := provider.Client(b.ID)
			if err != nil {
				logger.Warn("client poll: no client for binding", "id", b.ID, "error", err)
				continue
			}
			reply, err := cl.GetClients(ctx, b.BSSID)
			if err != nil {
				logger.Warn("client poll: get_clients failed", "bssid", b.BSSID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			parseClients(st, reply)

			if m.Kicking {
				if err := KickClients(ctx, st, cl, b.BSSID, m); err != nil {
					logger.Warn("kick_clients failed", "bssid", b.BSSID, "error", err)
				}
			}
		}
		return firstErr
	}
}

// parseClients fills the Client and AP tables from one client-table reply.
func parseClients(st *store.Store, reply wire.ClientsData) {
	st.APInsert(store.AP{
		BSSID:              reply.BSSID,
		SSID:               reply.SSID,
		FreqMHz:            reply.Freq,
		HT:                 reply.HTSupported,
		VHT:                reply.VHTSupported,
		ChannelUtilization: reply.ChannelUtilization,
		StationCount:       uint16(len(reply.Clients)),
		CollisionDomain:    reply.CollisionDomain,
		Bandwidth:          reply.Bandwidth,
	})
	for mac, flags := range reply.Clients {
		st.ClientInsert(store.ClientEntry{
			BSSID:        reply.BSSID,
			Client:       mac,
			Flags:        flags,
			FreqMHz:      reply.Freq,
			HTSupported:  flags.HT,
			VHTSupported: flags.VHT,
		})
	}
}

// ChanUtilTask implements the channel-utilization sampling loop.
func ChanUtilTask(reg *Registry, provider ClientProvider, st *store.Store, avgPeriod func() int, logger *logging.Logger) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		for _, b := range reg.List() {
			cl, err := provider.Client(b.ID)
			if err != nil {
				continue
			}
			busy, total, err := cl.ChannelBusy(ctx, b.BSSID)
			if err != nil {
				logger.Warn("chan util sample failed", "bssid", b.BSSID, "error", err)
				continue
			}
			if avg, ready := reg.RecordChanUtilSample(b.ID, busy, total, avgPeriod()); ready {
				if ap, ok := st.APGet(b.BSSID); ok {
					ap.ChannelUtilization = avg
					st.APInsert(ap)
				}
			}
		}
		return nil
	}
}

// APDiscoveryScanner abstracts the hostapd socket directory scan so
// APDiscoveryTask can be tested without a real filesystem.
type APDiscoveryScanner interface {
	Scan() ([]*store.LocalAPBinding, error)
}

// APDiscoveryTask re-scans for local AP sockets and adds any binding not
// already registered to reg. It does not open an event subscription on the
// new socket.
func APDiscoveryTask(reg *Registry, scanner APDiscoveryScanner, provider ClientProvider, logger *logging.Logger) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		found, err := scanner.Scan()
		if err != nil {
			return fmt.Errorf("ap discovery: scan: %w", err)
		}
		for _, b := range found {
			if reg.Has(b.ID) {
				continue
			}
			reg.Add(b)
			logger.Info("discovered local AP binding", "id", b.ID, "bssid", b.BSSID, "ssid", b.SSID)
		}
		return nil
	}
}

// PeerDiscoveryTask queries mDNS for peer Controllers and hands the result
// to the replication transport's mesh maintenance.
func PeerDiscoveryTask(resolver *discovery.Resolver, mesh *replication.Mesh, logger *logging.Logger) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		peers, err := resolver.Discover(ctx)
		if err != nil {
			return fmt.Errorf("peer discovery: %w", err)
		}
		mesh.SetPeers(peers)
		return nil
	}
}

// AgeingTask runs the store's periodic TTL sweep.
func AgeingTask(st *store.Store, clk clock.Clock) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		st.Sweep(clk.Now())
		return nil
	}
}
