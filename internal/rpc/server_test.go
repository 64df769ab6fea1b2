package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"steerd.dev/steerd/internal/clock"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	clk := clock.NewMockClock(time.Unix(0, 0))
	st := store.New(clk, store.TTLsFromAgeing(60))
	metric := func() config.Metric { return config.Default().Metric }
	macList, err := os.CreateTemp(t.TempDir(), "mac_list")
	if err != nil {
		t.Fatalf("tempfile: %v", err)
	}
	return New(st, metric, macList.Name(), nil, nil), st
}

func TestHandleAddMACInsertsAndPersists(t *testing.T) {
	srv, st := newTestServer(t)

	body := `{"addr":"AA:BB:CC:DD:EE:FF"}`
	req := httptest.NewRequest(http.MethodPost, "/api/add_mac", strings.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var reply AddMACReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !reply.Added {
		t.Fatal("expected Added = true")
	}
	if !st.PermitContains(wire.MustParseMAC("AA:BB:CC:DD:EE:FF")) {
		t.Fatal("expected mac to be permitted in store")
	}
}

func TestHandleHearingMapReportsScores(t *testing.T) {
	srv, st := newTestServer(t)

	bssid := wire.MustParseMAC("AA:AA:AA:AA:AA:01")
	client := wire.MustParseMAC("CC:00:00:00:00:01")
	st.APInsert(store.AP{BSSID: bssid, SSID: "guest"})
	st.ProbeInsert(store.ProbeEntry{BSSID: bssid, Client: client, Signal: -50}, store.Local)

	req := httptest.NewRequest(http.MethodGet, "/api/hearing_map", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var reply HearingMapReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := reply["guest"][client.String()][bssid.String()]; !ok {
		t.Fatalf("expected hearing entry, got %+v", reply)
	}
}
