package store

import (
	"testing"
	"time"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/wire"
)

func newTestStore(t *testing.T, now time.Time) (*Store, *clock.MockClock) {
	t.Helper()
	mc := clock.NewMockClock(now)
	return New(mc, TTLsFromAgeing(60)), mc
}

func TestProbeInsertMergesAndIncrementsCounter(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, mc := newTestStore(t, base)

	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	first := s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client, Signal: -70}, Local)
	if first.Counter != 1 {
		t.Fatalf("first insert counter = %d, want 1", first.Counter)
	}

	mc.Advance(time.Second)
	second := s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client, Signal: -50}, Local)
	if second.Counter != 2 {
		t.Fatalf("second insert counter = %d, want 2", second.Counter)
	}
	if !second.LastSeen.After(first.LastSeen) {
		t.Fatalf("last_seen did not advance")
	}
	if second.Signal != -50 {
		t.Fatalf("signal not overwritten: got %d", second.Signal)
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, mc := newTestStore(t, base)

	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")
	s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client}, Local)

	mc.Advance(61 * time.Second)
	s.Sweep(mc.Now())

	if _, ok := s.ProbeGet(bssid, client); ok {
		t.Fatal("expected probe to be swept")
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, mc := newTestStore(t, base)

	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")
	s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client}, Local)

	mc.Advance(30 * time.Second)
	s.Sweep(mc.Now())

	if _, ok := s.ProbeGet(bssid, client); !ok {
		t.Fatal("expected fresh probe to survive sweep")
	}
}

func TestPermitInsertIdempotent(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	mac := wire.MustParseMAC("CC:00:00:00:00:09")
	if !s.PermitInsert(mac) {
		t.Fatal("first insert should report inserted")
	}
	if s.PermitInsert(mac) {
		t.Fatal("second insert should report already present")
	}
	if !s.PermitContains(mac) {
		t.Fatal("expected mac to be permitted")
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ch, cancel := s.Subscribe(4)
	defer cancel()

	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")
	s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client}, Local)

	select {
	case c := <-ch:
		if c.Table != TableProbes || c.Type != ChangeInsert {
			t.Fatalf("unexpected change: %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestSizesReportsRowCounts(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	s.ProbeInsert(ProbeEntry{BSSID: bssid, Client: client}, Local)
	s.ClientInsert(ClientEntry{BSSID: bssid, Client: client})
	s.APInsert(AP{BSSID: bssid, SSID: "guest"})
	s.DeniedInsert(DeniedRequest{BSSID: bssid, Client: client, Kind: RequestAuth})

	probes, clients, aps, denied := s.Sizes()
	if probes != 1 || clients != 1 || aps != 1 || denied != 1 {
		t.Fatalf("Sizes() = %d,%d,%d,%d want 1,1,1,1", probes, clients, aps, denied)
	}
}

func TestProbeSetAllCountsRaisesNotResets(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	bssidA := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	bssidB := wire.MustParseMAC("AA:AA:AA:AA:AA:02")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	s.ProbeInsert(ProbeEntry{BSSID: bssidA, Client: client}, Local)
	s.ProbeInsert(ProbeEntry{BSSID: bssidB, Client: client}, Local)

	s.ProbeSetAllCounts(client, 3)

	pa, _ := s.ProbeGet(bssidA, client)
	pb, _ := s.ProbeGet(bssidB, client)
	if pa.Counter != 3 || pb.Counter != 3 {
		t.Fatalf("expected counters raised to 3, got %d and %d", pa.Counter, pb.Counter)
	}
}
