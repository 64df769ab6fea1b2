package scoring

import (
	"testing"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// testMetric isolates the rssi/freq terms of Score: every other weight is
// zeroed so a test can reason about one or two contributions at a time
// instead of the full weighted sum.
func testMetric() config.Metric {
	m := config.Default().Metric
	m.HTSupport = 0
	m.VHTSupport = 0
	m.NoHTSupport = 0
	m.NoVHTSupport = 0
	m.LowRSSI = 0
	m.ChanUtil = 0
	m.MaxChanUtil = 0
	m.RSSI = 10
	m.Freq = 15
	m.RSSIThresholdHigh = -60
	m.MinProbeCount = 1
	return m
}

func newStore() *store.Store {
	return store.New(clock.NewMockClock(clock.Now()), store.TTLsFromAgeing(60))
}

// S1: Accept on no data.
func TestDecideAcceptOnInsufficientData(t *testing.T) {
	s := newStore()
	m := testMetric()
	m.MinProbeCount = 3

	a := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")
	s.APInsert(store.AP{BSSID: a, SSID: "w", FreqMHz: 5180, HT: true, VHT: true})
	s.ProbeInsert(store.ProbeEntry{BSSID: a, Client: client, Signal: -55, HTCapable: true, VHTCapable: true}, store.Local)

	got := Decide(s, Request{Kind: store.RequestProbe, BSSID: a, Client: client}, m)
	if got.Verdict != Accept {
		t.Fatalf("probe decide = %+v, want Accept", got)
	}
	got = Decide(s, Request{Kind: store.RequestAuth, BSSID: a, Client: client}, m)
	if got.Verdict != Accept {
		t.Fatalf("auth decide = %+v, want Accept", got)
	}
}

// S2: Deny on better peer.
func TestDecideDenyOnBetterPeer(t *testing.T) {
	s := newStore()
	m := testMetric()

	a := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	b := wire.MustParseMAC("AA:AA:AA:AA:AA:02")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	s.APInsert(store.AP{BSSID: a, SSID: "w", FreqMHz: 5180, HT: true, VHT: true})
	s.APInsert(store.AP{BSSID: b, SSID: "w", FreqMHz: 2412, HT: true, VHT: false})

	s.ProbeInsert(store.ProbeEntry{BSSID: a, Client: client, Signal: -80}, store.Local)
	s.ProbeInsert(store.ProbeEntry{BSSID: a, Client: client, Signal: -80}, store.Local)
	s.ProbeInsert(store.ProbeEntry{BSSID: b, Client: client, Signal: -50}, store.Local)
	s.ProbeInsert(store.ProbeEntry{BSSID: b, Client: client, Signal: -50}, store.Local)

	pa, _ := s.ProbeGet(a, client)
	pb, _ := s.ProbeGet(b, client)
	apA, _ := s.APGet(a)
	apB, _ := s.APGet(b)

	scoreA := Score(apA, pa, m)
	scoreB := Score(apB, pb, m)
	if scoreA != 15 {
		t.Fatalf("scoreA = %d, want 15", scoreA)
	}
	if scoreB != 10 {
		t.Fatalf("scoreB = %d, want 10", scoreB)
	}

	m.UseDriverRecog = true
	got := Decide(s, Request{Kind: store.RequestAuth, BSSID: b, Client: client}, m)
	if got.Verdict != Deny || got.Reason != 17 {
		t.Fatalf("decide = %+v, want Deny(17)", got)
	}
	if _, ok := s.DeniedLookup(b, client); !ok {
		t.Fatal("expected denied request to be recorded")
	}
}

// S3 groundwork: kick_clients predicate (strict better-AP-available).
func TestBetterAPAvailableStrictRequiresHigherScore(t *testing.T) {
	s := newStore()
	m := testMetric()

	a := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	b := wire.MustParseMAC("AA:AA:AA:AA:AA:02")
	client := wire.MustParseMAC("CC:00:00:00:00:01")

	s.APInsert(store.AP{BSSID: a, SSID: "w", FreqMHz: 5180})
	s.APInsert(store.AP{BSSID: b, SSID: "w", FreqMHz: 5180})
	s.ProbeInsert(store.ProbeEntry{BSSID: a, Client: client, Signal: -70}, store.Local)
	s.ProbeInsert(store.ProbeEntry{BSSID: b, Client: client, Signal: -70}, store.Local)

	if BetterAPAvailable(s, a, client, m, true) {
		t.Fatal("equal scores under strict mode should not trigger a kick")
	}
	if !BetterAPAvailable(s, b, client, m, false) {
		t.Fatal("equal scores under non-strict mode should tie-break on lower bssid")
	}
}

// S5: permit overrides scoring entirely.
func TestDecideAcceptsPermittedClientRegardlessOfScore(t *testing.T) {
	s := newStore()
	m := testMetric()
	client := wire.MustParseMAC("CC:00:00:00:00:09")
	s.PermitInsert(client)

	got := Decide(s, Request{Kind: store.RequestAuth, BSSID: wire.MustParseMAC("AA:AA:AA:AA:AA:01"), Client: client}, m)
	if got.Verdict != Accept {
		t.Fatalf("decide = %+v, want Accept for permitted client", got)
	}
}

func TestScoreIsAdditiveAndDeterministic(t *testing.T) {
	m := testMetric()
	ap := store.AP{HT: true, VHT: true, FreqMHz: 5180, ChannelUtilization: 100}
	probe := store.ProbeEntry{HTCapable: true, VHTCapable: true, Signal: -50}

	want := Score(ap, probe, m)
	for i := 0; i < 5; i++ {
		if got := Score(ap, probe, m); got != want {
			t.Fatalf("Score not deterministic: got %d, want %d", got, want)
		}
	}
}
