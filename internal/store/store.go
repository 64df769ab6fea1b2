// Package store implements the in-memory observation store: TTL-indexed
// tables of probes, clients, APs, denied requests, and the permit list.
// Everything lives in process memory only — there is no persistence across
// restarts, by design (see the non-goals of the system this store backs).
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/wire"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = fmt.Errorf("store: not found")

// TTLs holds the per-table expiry windows, all derived from a single
// configured ageing interval.
type TTLs struct {
	Probe  time.Duration
	Client time.Duration
	AP     time.Duration
	Denied time.Duration
}

// TTLsFromAgeing derives the per-table TTLs from the configured ageing_time,
// in seconds. Denied retention is 2x ageing_time (see design notes: the
// source leaves denied-request eviction unspecified).
func TTLsFromAgeing(ageingSeconds int) TTLs {
	base := time.Duration(ageingSeconds) * time.Second
	if base <= 0 {
		base = 60 * time.Second
	}
	return TTLs{
		Probe:  base,
		Client: base * 2,
		AP:     base * 2,
		Denied: base * 2,
	}
}

// Store is the sole owner of the observation tables. All mutating
// operations are serialized behind mu; snapshots copy out before the caller
// iterates, so readers never hold the lock during I/O.
type Store struct {
	mu sync.RWMutex

	clock clock.Clock
	ttls  TTLs

	probes  map[Key]ProbeEntry
	clients map[Key]ClientEntry
	aps     map[wire.MacAddr]AP
	denied  map[Key]DeniedRequest
	permit  map[wire.MacAddr]struct{}

	subs map[int]chan Change
	next int
}

// New constructs an empty Store with the given clock and TTL schedule.
func New(clk clock.Clock, ttls TTLs) *Store {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Store{
		clock:   clk,
		ttls:    ttls,
		probes:  make(map[Key]ProbeEntry),
		clients: make(map[Key]ClientEntry),
		aps:     make(map[wire.MacAddr]AP),
		denied:  make(map[Key]DeniedRequest),
		permit:  make(map[wire.MacAddr]struct{}),
		subs:    make(map[int]chan Change),
	}
}

func (s *Store) publish(c Change) {
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default: // drop rather than block a slow subscriber
		}
	}
}

// Subscribe returns a channel of store changes. The channel is closed when
// the caller's subscription is removed (there is no explicit Unsubscribe;
// callers let the returned cancel func run, typically via context).
func (s *Store) Subscribe(bufSize int) (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan Change, bufSize)
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// ProbeInsert inserts or merges a probe observation. On a repeat
// observation of the same (bssid, client) key, signal/freq/capability are
// overwritten, counter is incremented, and last_seen refreshed. The merged
// record is returned.
func (s *Store) ProbeInsert(e ProbeEntry, origin Origin) ProbeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{BSSID: e.BSSID, Client: e.Client}
	now := s.clock.Now()
	existing, ok := s.probes[key]

	merged := e
	merged.LastSeen = now
	if ok {
		merged.Counter = existing.Counter + 1
	} else {
		merged.Counter = 1
	}
	s.probes[key] = merged

	ct := ChangeInsert
	if ok {
		ct = ChangeUpdate
	}
	s.publish(Change{Type: ct, Table: TableProbes, BSSID: e.BSSID, Client: e.Client, Origin: origin})
	return merged
}

// ProbeGet looks up a probe row.
func (s *Store) ProbeGet(bssid, client wire.MacAddr) (ProbeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.probes[Key{BSSID: bssid, Client: client}]
	return p, ok
}

// ProbesForClient returns every probe row recorded for client, one per AP
// that has heard it, in no particular order.
func (s *Store) ProbesForClient(client wire.MacAddr) []ProbeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProbeEntry, 0, 4)
	for k, p := range s.probes {
		if k.Client == client {
			out = append(out, p)
		}
	}
	return out
}

// ProbeSnapshot returns every probe row known to the store, in no
// particular order. Used by read paths that must group observations by
// SSID or client (e.g. the hearing-map RPC).
func (s *Store) ProbeSnapshot() []ProbeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProbeEntry, 0, len(s.probes))
	for _, p := range s.probes {
		out = append(out, p)
	}
	return out
}

// ProbeSetAllCounts raises (or sets) the counter of every probe row for
// client_mac to value. Used by the "setprobe" admin path, which primes
// acceptance rather than resetting history — see design notes.
func (s *Store) ProbeSetAllCounts(client wire.MacAddr, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.probes {
		if k.Client == client {
			p.Counter = value
			s.probes[k] = p
			s.publish(Change{Type: ChangeUpdate, Table: TableProbes, BSSID: k.BSSID, Client: k.Client, Origin: Local})
		}
	}
}

// ClientInsert inserts or replaces a client table row.
func (s *Store) ClientInsert(c ClientEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.LastSeen = s.clock.Now()
	key := Key{BSSID: c.BSSID, Client: c.Client}
	_, existed := s.clients[key]
	s.clients[key] = c
	ct := ChangeInsert
	if existed {
		ct = ChangeUpdate
	}
	s.publish(Change{Type: ct, Table: TableClients, BSSID: c.BSSID, Client: c.Client, Origin: Local})
}

// ClientDelete removes a client row, e.g. on deauth.
func (s *Store) ClientDelete(bssid, client wire.MacAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, Key{BSSID: bssid, Client: client})
	s.publish(Change{Type: ChangeDelete, Table: TableClients, BSSID: bssid, Client: client, Origin: Local})
}

// ClientSnapshot returns every known client row, sorted for determinism.
func (s *Store) ClientSnapshot() []ClientEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ClientEntry, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BSSID != out[j].BSSID {
			return out[i].BSSID.Less(out[j].BSSID)
		}
		return out[i].Client.Less(out[j].Client)
	})
	return out
}

// ClientsByBSSID returns the clients currently associated to bssid.
func (s *Store) ClientsByBSSID(bssid wire.MacAddr) []ClientEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ClientEntry, 0, 8)
	for k, c := range s.clients {
		if k.BSSID == bssid {
			out = append(out, c)
		}
	}
	return out
}

// APInsert inserts or replaces an AP record.
func (s *Store) APInsert(ap AP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap.LastSeen = s.clock.Now()
	_, existed := s.aps[ap.BSSID]
	s.aps[ap.BSSID] = ap
	ct := ChangeInsert
	if existed {
		ct = ChangeUpdate
	}
	s.publish(Change{Type: ct, Table: TableAPs, BSSID: ap.BSSID, Origin: Local})
}

// APGet looks up an AP by bssid.
func (s *Store) APGet(bssid wire.MacAddr) (AP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ap, ok := s.aps[bssid]
	return ap, ok
}

// APListBySSID returns every AP sharing ssid — the steering domain.
func (s *Store) APListBySSID(ssid string) []AP {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AP, 0, 4)
	for _, ap := range s.aps {
		if ap.SSID == ssid {
			out = append(out, ap)
		}
	}
	return out
}

// DeniedInsert records a refusal for driver-assisted recognition.
func (s *Store) DeniedInsert(req DeniedRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.LastSeen = s.clock.Now()
	s.denied[Key{BSSID: req.BSSID, Client: req.Client}] = req
	s.publish(Change{Type: ChangeInsert, Table: TableDenied, BSSID: req.BSSID, Client: req.Client, Origin: Local})
}

// DeniedLookup retrieves a prior refusal, if still within retention.
func (s *Store) DeniedLookup(bssid, client wire.MacAddr) (DeniedRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.denied[Key{BSSID: bssid, Client: client}]
	return d, ok
}

// PermitInsert adds a MAC to the permit list. Returns false if already
// present.
func (s *Store) PermitInsert(mac wire.MacAddr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permit[mac]; ok {
		return false
	}
	s.permit[mac] = struct{}{}
	s.publish(Change{Type: ChangeInsert, Table: TablePermit, Client: mac, Origin: Local})
	return true
}

// PermitContains reports whether mac bypasses deny logic.
func (s *Store) PermitContains(mac wire.MacAddr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.permit[mac]
	return ok
}

// Sizes returns the current row count of each table, for metrics sampling.
func (s *Store) Sizes() (probes, clients, aps, denied int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.probes), len(s.clients), len(s.aps), len(s.denied)
}

// Sweep removes rows whose last_seen has exceeded the table's TTL, as of
// now. It is the body of the periodic ageing control loop.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, p := range s.probes {
		if now.Sub(p.LastSeen) > s.ttls.Probe {
			delete(s.probes, k)
			s.publish(Change{Type: ChangeDelete, Table: TableProbes, BSSID: k.BSSID, Client: k.Client})
		}
	}
	for k, c := range s.clients {
		if now.Sub(c.LastSeen) > s.ttls.Client {
			delete(s.clients, k)
			s.publish(Change{Type: ChangeDelete, Table: TableClients, BSSID: k.BSSID, Client: k.Client})
		}
	}
	for bssid, ap := range s.aps {
		if now.Sub(ap.LastSeen) > s.ttls.AP {
			delete(s.aps, bssid)
			s.publish(Change{Type: ChangeDelete, Table: TableAPs, BSSID: bssid})
		}
	}
	for k, d := range s.denied {
		if now.Sub(d.LastSeen) > s.ttls.Denied {
			delete(s.denied, k)
			s.publish(Change{Type: ChangeDelete, Table: TableDenied, BSSID: k.BSSID, Client: k.Client})
		}
	}
}
