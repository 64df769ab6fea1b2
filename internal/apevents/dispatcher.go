package apevents

import (
	"encoding/json"
	"time"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/scoring"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// Replicator is the subset of the replication transport the dispatcher
// needs: broadcasting a locally originated observation to peer Controllers.
// Defined here, rather than depending on the replication package directly,
// to keep this package's dependency graph a leaf.
type Replicator interface {
	Broadcast(method string, payload any) error
}

// Dispatcher implements the four row table of the local event bus: it
// normalizes each incoming method into a store mutation, a scoring
// decision, and a replicated frame where applicable.
type Dispatcher struct {
	Store      *store.Store
	Metric     func() config.Metric
	Hub        *Hub
	Replicator Replicator
	Clock      clock.Clock
}

// HandleProbe implements the "probe" row: insert locally, replicate, then
// evaluate the probe decision (used by AP drivers that gate probe responses).
func (d *Dispatcher) HandleProbe(bssid, ssid string, data wire.ProbeData) scoring.Decision {
	entry := store.ProbeEntry{
		BSSID:      data.BSSID,
		Client:     data.Address,
		Target:     data.Target,
		Signal:     data.Signal,
		FreqMHz:    data.Freq,
		HTCapable:  data.HTSupport,
		VHTCapable: data.VHTSupport,
	}
	d.Store.ProbeInsert(entry, store.Local)
	d.replicate(wire.MethodProbe, data)

	decision := scoring.Decide(d.Store, scoring.Request{
		Kind: store.RequestProbe, BSSID: data.BSSID, Client: data.Address,
	}, d.Metric())

	d.Hub.Publish(Event{Timestamp: d.now(), Type: EventProbe, BSSID: data.BSSID, Client: data.Address, Data: data})
	return decision
}

// HandleAuth implements the "auth" row: decide and reply.
func (d *Dispatcher) HandleAuth(data wire.DeauthData) scoring.Decision {
	decision := scoring.Decide(d.Store, scoring.Request{
		Kind: store.RequestAuth, BSSID: data.BSSID, Client: data.Address,
	}, d.Metric())
	d.Hub.Publish(Event{Timestamp: d.now(), Type: EventAuth, BSSID: data.BSSID, Client: data.Address, Data: decision})
	return decision
}

// HandleAssoc implements the "assoc" row: decide and reply.
func (d *Dispatcher) HandleAssoc(data wire.DeauthData) scoring.Decision {
	decision := scoring.Decide(d.Store, scoring.Request{
		Kind: store.RequestAssoc, BSSID: data.BSSID, Client: data.Address,
	}, d.Metric())
	d.Hub.Publish(Event{Timestamp: d.now(), Type: EventAssoc, BSSID: data.BSSID, Client: data.Address, Data: decision})
	return decision
}

// HandleDeauth implements the "deauth" row: delete the client and replicate.
func (d *Dispatcher) HandleDeauth(data wire.DeauthData) {
	d.Store.ClientDelete(data.BSSID, data.Address)
	d.replicate(wire.MethodDeauth, data)
	d.Hub.Publish(Event{Timestamp: d.now(), Type: EventDeauth, BSSID: data.BSSID, Client: data.Address, Data: data})
}

// ApplyRemote merges one envelope received over the replication transport
// into the local store. Every insert carries store.Remote origin, which is
// what keeps the two Controllers from re-broadcasting each other's
// observations back and forth: replicate is never called from here.
func (d *Dispatcher) ApplyRemote(method string, payload json.RawMessage) {
	switch method {
	case wire.MethodProbe:
		var data wire.ProbeData
		if err := json.Unmarshal(payload, &data); err != nil {
			return
		}
		d.Store.ProbeInsert(store.ProbeEntry{
			BSSID:      data.BSSID,
			Client:     data.Address,
			Target:     data.Target,
			Signal:     data.Signal,
			FreqMHz:    data.Freq,
			HTCapable:  data.HTSupport,
			VHTCapable: data.VHTSupport,
		}, store.Remote)

	case wire.MethodDeauth:
		var data wire.DeauthData
		if err := json.Unmarshal(payload, &data); err != nil {
			return
		}
		d.Store.ClientDelete(data.BSSID, data.Address)

	case wire.MethodAddMAC:
		var data wire.AddMACData
		if err := json.Unmarshal(payload, &data); err != nil {
			return
		}
		d.Store.PermitInsert(data.Addr)

	case wire.MethodSetProbe:
		var data wire.SetProbeData
		if err := json.Unmarshal(payload, &data); err != nil {
			return
		}
		d.Store.ProbeSetAllCounts(data.Address, uint32(d.Metric().MinProbeCount))

	default:
		// Methods without a case here are ignored rather than treated as
		// fatal. This includes "clients" frames, whose client tables are
		// not merged into the local store, and unknown methods (e.g. a
		// future peer running a newer wire version).
	}
}

func (d *Dispatcher) replicate(method string, payload any) {
	if d.Replicator == nil {
		return
	}
	_ = d.Replicator.Broadcast(method, payload) // best-effort: send failure never blocks the local decision
}

func (d *Dispatcher) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}
