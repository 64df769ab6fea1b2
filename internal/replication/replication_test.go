package replication

import (
	"encoding/json"
	"testing"

	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/logging"
)

func TestNewDatagramMode(t *testing.T) {
	net := config.Network{Option: 0, IP: "239.10.10.2", Port: 0}
	m, err := New(net, nil, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()
	if m.isMesh {
		t.Fatal("option 0 should not select mesh transport")
	}
}

func TestNewMeshMode(t *testing.T) {
	net := config.Network{Option: 2, TCPPort: 0}
	m, err := New(net, nil, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()
	if !m.isMesh {
		t.Fatal("option 2 should select mesh transport")
	}
}

func TestNewRejectsUnknownOption(t *testing.T) {
	net := config.Network{Option: 9}
	if _, err := New(net, nil, logging.Default()); err == nil {
		t.Fatal("expected error for unknown network.option")
	}
}

func TestNewRejectsEncryptionWithoutKey(t *testing.T) {
	net := config.Network{Option: 0, IP: "239.10.10.2", Port: 0, UseSymmEnc: true, SharedKey: ""}
	if _, err := New(net, nil, logging.Default()); err == nil {
		t.Fatal("expected error for empty shared key with encryption enabled")
	}
}

func TestMeshDispatchInvokesHandler(t *testing.T) {
	var gotMethod string
	var gotPayload json.RawMessage
	handler := func(method string, payload json.RawMessage) {
		gotMethod = method
		gotPayload = payload
	}

	net := config.Network{Option: 2, TCPPort: 0}
	m, err := New(net, handler, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	m.dispatch(envelope{Method: "probe", Payload: json.RawMessage(`{"x":1}`)})
	if gotMethod != "probe" {
		t.Fatalf("handler method = %q, want probe", gotMethod)
	}
	if string(gotPayload) != `{"x":1}` {
		t.Fatalf("handler payload = %s", gotPayload)
	}
}
