package control

import (
	"context"
	"sync"
	"time"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/scoring"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// kickLimiter rate-limits outstanding kicks per (bssid, client): at most one
// outstanding kick at a time, with a minimum spacing between attempts.
type kickLimiter struct {
	mu       sync.Mutex
	inFlight map[store.Key]struct{}
	lastKick map[store.Key]time.Time
}

var limiter = &kickLimiter{
	inFlight: make(map[store.Key]struct{}),
	lastKick: make(map[store.Key]time.Time),
}

func (l *kickLimiter) tryStart(key store.Key, minSpacing time.Duration, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[key]; busy {
		return false
	}
	if last, ok := l.lastKick[key]; ok && now.Sub(last) < minSpacing {
		return false
	}
	l.inFlight[key] = struct{}{}
	return true
}

func (l *kickLimiter) finish(key store.Key, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, key)
	l.lastKick[key] = now
}

// KickClients implements the kick_clients control action: for every client
// currently associated to bssid, if it is not permitted and a strictly
// better AP is available and it has enough probe history, request the AP
// evict it. Kicks are rate-limited to at most one outstanding attempt per
// client with a minimum spacing of min_kick_count seconds.
func KickClients(ctx context.Context, st *store.Store, cl apclient.APClient, bssid wire.MacAddr, m config.Metric) error {
	minSpacing := time.Duration(m.MinKickCount) * time.Second
	now := time.Now()

	var firstErr error
	for _, c := range st.ClientsByBSSID(bssid) {
		if st.PermitContains(c.Client) {
			continue
		}
		p, ok := st.ProbeGet(bssid, c.Client)
		if !ok || p.Counter < uint32(m.MinProbeCount) {
			continue
		}
		if !scoring.BetterAPAvailable(st, bssid, c.Client, m, true) {
			continue
		}

		key := store.Key{BSSID: bssid, Client: c.Client}
		if !limiter.tryStart(key, minSpacing, now) {
			continue
		}

		err := cl.DelClient(ctx, bssid, c.Client, m.DenyAssocReason, true, minSpacing)
		limiter.finish(key, now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
