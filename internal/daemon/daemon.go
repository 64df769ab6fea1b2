// Package daemon wires the whole process together: config, store,
// replication transport, local event bus, AP bindings, control loops, and
// the RPC surface. It is the orchestrator of SPEC section 4.H.
package daemon

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/apevents"
	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/control"
	"steerd.dev/steerd/internal/discovery"
	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/metrics"
	"steerd.dev/steerd/internal/replication"
	"steerd.dev/steerd/internal/rpc"
	"steerd.dev/steerd/internal/scheduler"
	"steerd.dev/steerd/internal/store"
)

// Daemon owns every long-lived component constructed at startup.
type Daemon struct {
	cfg    *config.Config
	logger *logging.Logger

	Store      *store.Store
	Hub        *apevents.Hub
	Dispatcher *apevents.Dispatcher
	Mesh       *replication.Mesh
	Registry   *control.Registry
	Scheduler  *scheduler.Scheduler
	RPC        *rpc.Server
	Collector  *metrics.StoreCollector
	Resolver   *discovery.Resolver
}

// clientProviderFunc adapts a function to control.ClientProvider.
type clientProviderFunc func(id string) (apclient.APClient, error)

func (f clientProviderFunc) Client(id string) (apclient.APClient, error) { return f(id) }

// New constructs every component but starts nothing: all I/O begins in Run.
// clients resolves a binding's socket id to a live AP connection; the
// caller supplies it because the daemon itself has no opinion on how AP
// sockets are discovered beyond the configured directory.
func New(cfg *config.Config, clients func(id string) (apclient.APClient, error), logger *logging.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("daemon")

	st := store.New(&clock.RealClock{}, store.TTLsFromAgeing(cfg.Metric.AgeingTime))
	if err := st.PermitLoadFile(cfg.MacListPath); err != nil {
		return nil, fmt.Errorf("daemon: load permit list: %w", err)
	}

	hub := apevents.NewHub()
	metricFn := func() config.Metric { return cfg.Metric }

	dispatcher := &apevents.Dispatcher{Store: st, Metric: metricFn, Hub: hub}

	mesh, err := replication.New(cfg.Network, dispatcher.ApplyRemote, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: replication transport: %w", err)
	}
	dispatcher.Replicator = mesh

	reg := control.NewRegistry()
	sched := scheduler.New(logger)
	resolver := discovery.NewResolver("", logger)
	server := rpc.New(st, metricFn, cfg.MacListPath, mesh, logger)
	collector := metrics.NewStoreCollector(metrics.Get(), st, 30*time.Second)

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		Store:      st,
		Hub:        hub,
		Dispatcher: dispatcher,
		Mesh:       mesh,
		Registry:   reg,
		Scheduler:  sched,
		RPC:        server,
		Collector:  collector,
		Resolver:   resolver,
	}

	provider := clientProviderFunc(clients)
	if err := d.scheduleTasks(provider); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Daemon) scheduleTasks(provider control.ClientProvider) error {
	m := func() config.Metric { return d.cfg.Metric }

	scanner := control.NewSocketScanner(d.cfg.HostapdDir, provider, d.logger)

	tasks := []*scheduler.Task{
		{
			ID:         "ap_discovery",
			Name:       "local AP socket discovery",
			Schedule:   scheduler.Every(time.Duration(d.cfg.Times.UpdateHostapd) * time.Second),
			Func:       control.APDiscoveryTask(d.Registry, scanner, provider, d.logger),
			Enabled:    true,
			RunOnStart: true,
		},
		{
			ID:       "client_poll",
			Name:     "client poll",
			Schedule: scheduler.Every(time.Duration(d.cfg.Times.UpdateClient) * time.Second),
			Func:     control.ClientPollTask(d.Registry, provider, d.Store, m, d.logger),
			Enabled:  true,
		},
		{
			ID:       "chan_util",
			Name:     "channel utilization sampling",
			Schedule: scheduler.Every(time.Duration(d.cfg.Times.UpdateChanUtil) * time.Second),
			Func:     control.ChanUtilTask(d.Registry, provider, d.Store, func() int { return d.cfg.Metric.ChanUtilAvgPeriod }, d.logger),
			Enabled:  true,
		},
		{
			ID:       "peer_discovery",
			Name:     "mDNS peer discovery",
			Schedule: scheduler.Every(time.Duration(d.cfg.Times.UpdateTCPCon) * time.Second),
			Func:     control.PeerDiscoveryTask(d.Resolver, d.Mesh, d.logger),
			Enabled:  true,
		},
		{
			ID:       "ageing_sweep",
			Name:     "store ageing sweep",
			Schedule: scheduler.Every(time.Duration(d.cfg.Metric.AgeingTime) * time.Second),
			Func:     control.AgeingTask(d.Store, &clock.RealClock{}),
			Enabled:  true,
		},
	}
	for _, t := range tasks {
		if err := d.Scheduler.AddTask(t); err != nil {
			return fmt.Errorf("daemon: schedule %s: %w", t.ID, err)
		}
	}
	return nil
}

// Run starts every component and blocks until ctx is cancelled or a
// component fails. Shutdown stops the scheduler, closes the transport, and
// releases subscriptions.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.Mesh.Run(ctx) })
	g.Go(func() error { return d.Collector.Run(ctx) })
	g.Go(func() error { return d.RPC.Run(ctx, d.cfg.RPCAddr) })

	d.Scheduler.Start()
	<-ctx.Done()
	d.Scheduler.Stop()

	err := g.Wait()
	d.Mesh.Close()
	return err
}
