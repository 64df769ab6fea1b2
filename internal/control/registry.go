// Package control implements the periodic jobs that poll AP client tables,
// sample channel utilization, discover peers and local APs, age store
// entries, and issue kicks — the scheduled work of the daemon.
package control

import (
	"sync"

	"steerd.dev/steerd/internal/store"
)

// Registry tracks every locally attached AP binding. It is the in-process
// analogue of scanning a hostapd control-socket directory: one binding per
// discovered management socket.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*store.LocalAPBinding
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*store.LocalAPBinding)}
}

// Add registers a binding, keyed by its socket id (e.g. the interface name).
func (r *Registry) Add(b *store.LocalAPBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[b.ID] = b
}

// Remove drops a binding.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, id)
}

// Has reports whether id is already registered, so AP discovery can skip
// sockets it has already subscribed to.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[id]
	return ok
}

// List returns every binding, in no particular order.
func (r *Registry) List() []*store.LocalAPBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*store.LocalAPBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	return out
}

// RecordChanUtilSample accumulates one busy/total sample into the binding's
// running average. Once chan_util_avg_period samples have been collected it
// stores the average on the binding, resets the accumulator, and returns
// (average, true); otherwise it returns (0, false).
func (r *Registry) RecordChanUtilSample(id string, busy, total uint32, avgPeriod int) (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[id]
	if !ok || total == 0 {
		return 0, false
	}
	b.SamplesSum += uint64(busy) * 255 / uint64(total)
	b.NumSamples++
	if int(b.NumSamples) < avgPeriod {
		return 0, false
	}
	avg := uint8(b.SamplesSum / uint64(b.NumSamples))
	b.Average = avg
	b.SamplesSum = 0
	b.NumSamples = 0
	return avg, true
}
