package metrics

import (
	"context"
	"time"

	"steerd.dev/steerd/internal/store"
)

// StoreCollector periodically samples the observation store's table sizes
// into the registry's gauges.
type StoreCollector struct {
	registry *Registry
	store    *store.Store
	interval time.Duration
}

// NewStoreCollector builds a StoreCollector sampling st every interval.
func NewStoreCollector(registry *Registry, st *store.Store, interval time.Duration) *StoreCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StoreCollector{registry: registry, store: st, interval: interval}
}

// Run samples on a ticker until ctx is cancelled.
func (c *StoreCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *StoreCollector) sample() {
	probes, clients, aps, denied := c.store.Sizes()
	c.registry.StoreProbes.Set(float64(probes))
	c.registry.StoreClients.Set(float64(clients))
	c.registry.StoreAPs.Set(float64(aps))
	c.registry.StoreDenied.Set(float64(denied))
}
