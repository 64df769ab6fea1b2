package control

import (
	"context"
	"testing"
	"time"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

func TestClientPollTaskMergesClientTable(t *testing.T) {
	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	mock := apclient.NewMock()
	mock.Clients[bssid] = wire.ClientsData{
		BSSID:   bssid,
		SSID:    "guest",
		Freq:    2412,
		Clients: map[wire.MacAddr]wire.ClientFlags{client: {Assoc: true, HT: true}},
	}

	reg := NewRegistry()
	reg.Add(&store.LocalAPBinding{ID: "wlan0", BSSID: bssid})
	provider := &fakeProvider{byID: map[string]apclient.APClient{"wlan0": mock}}
	st := store.New(clock.NewMockClock(clock.Now()), store.TTLsFromAgeing(60))
	m := config.Default().Metric
	m.Kicking = false

	task := ClientPollTask(reg, provider, st, func() config.Metric { return m }, logging.Default())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := task(ctx); err != nil {
		t.Fatalf("task: %v", err)
	}

	if _, ok := st.APGet(bssid); !ok {
		t.Fatal("expected AP to be merged into the store")
	}
	clients := st.ClientsByBSSID(bssid)
	if len(clients) != 1 || clients[0].Client != client {
		t.Fatalf("expected client merged, got %+v", clients)
	}
}

func TestChanUtilTaskPublishesAverageAfterPeriod(t *testing.T) {
	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	mock := apclient.NewMock()
	mock.BusyMap[bssid] = [2]uint32{50, 100}

	reg := NewRegistry()
	reg.Add(&store.LocalAPBinding{ID: "wlan0", BSSID: bssid})
	provider := &fakeProvider{byID: map[string]apclient.APClient{"wlan0": mock}}
	st := store.New(clock.NewMockClock(clock.Now()), store.TTLsFromAgeing(60))
	st.APInsert(store.AP{BSSID: bssid})

	task := ChanUtilTask(reg, provider, st, func() int { return 1 }, logging.Default())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := task(ctx); err != nil {
		t.Fatalf("task: %v", err)
	}

	ap, ok := st.APGet(bssid)
	if !ok {
		t.Fatal("expected AP to still be present")
	}
	if ap.ChannelUtilization == 0 {
		t.Fatal("expected channel utilization to be published after one sample with avgPeriod 1")
	}
}

func TestAgeingTaskSweepsExpiredEntries(t *testing.T) {
	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	mc := clock.NewMockClock(clock.Now())
	st := store.New(mc, store.TTLsFromAgeing(1))
	st.ProbeInsert(store.ProbeEntry{BSSID: bssid, Client: client}, store.Local)

	mc.Advance(10 * time.Second)
	task := AgeingTask(st, mc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := task(ctx); err != nil {
		t.Fatalf("task: %v", err)
	}

	if _, ok := st.ProbeGet(bssid, client); ok {
		t.Fatal("expected expired probe to be swept")
	}
}
