package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

func TestStoreCollectorSamplesSizes(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(0, 0))
	st := store.New(clk, store.TTLsFromAgeing(60))
	bssid := wire.MustParseMAC("AA:BB:CC:DD:EE:01")
	client := wire.MustParseMAC("AA:BB:CC:DD:EE:02")
	st.ClientInsert(store.ClientEntry{BSSID: bssid, Client: client})

	reg := newRegistry()
	c := NewStoreCollector(reg, st, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	if got := testutil.ToFloat64(reg.StoreClients); got != 1 {
		t.Fatalf("StoreClients = %v, want 1", got)
	}
}
