package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HostapdDir = t.TempDir()
	cfg.MacListPath = filepath.Join(t.TempDir(), "macs.txt")
	cfg.RPCAddr = "127.0.0.1:0"
	cfg.Network.Option = 0
	cfg.Network.Port = 0
	cfg.Times.UpdateClient = 60
	cfg.Times.UpdateChanUtil = 60
	cfg.Times.UpdateTCPCon = 60
	return cfg
}

func noopProvider(id string) (apclient.APClient, error) {
	return nil, errors.New("no AP sockets in this test")
}

func TestNewWiresEveryComponent(t *testing.T) {
	d, err := New(testConfig(t), noopProvider, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Mesh.Close()

	if d.Store == nil || d.Hub == nil || d.Dispatcher == nil || d.Mesh == nil ||
		d.Registry == nil || d.Scheduler == nil || d.RPC == nil || d.Collector == nil || d.Resolver == nil {
		t.Fatal("expected every component to be constructed")
	}
	if d.Dispatcher.Replicator != d.Mesh {
		t.Fatal("expected dispatcher to replicate through the daemon's mesh")
	}

	statuses := d.Scheduler.GetStatus()
	want := map[string]bool{
		"ap_discovery":   false,
		"client_poll":    false,
		"chan_util":      false,
		"peer_discovery": false,
		"ageing_sweep":   false,
	}
	for _, s := range statuses {
		if _, ok := want[s.ID]; !ok {
			t.Fatalf("unexpected scheduled task %q", s.ID)
		}
		want[s.ID] = true
	}
	for id, seen := range want {
		if !seen {
			t.Fatalf("expected task %q to be scheduled", id)
		}
	}
}

func TestRunStopsCleanlyOnContextCancel(t *testing.T) {
	d, err := New(testConfig(t), noopProvider, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
