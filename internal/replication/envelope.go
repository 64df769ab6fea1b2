package replication

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire-level replication message: a method name (mirroring
// internal/wire's Frame methods) plus an opaque JSON payload. The datagram
// and mesh transports both send envelopes, optionally sealed with a
// cryptor before hitting the socket.
type envelope struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"data"`
}

func encodeEnvelope(method string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replication: marshal payload: %w", err)
	}
	return json.Marshal(envelope{Method: method, Payload: raw})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return envelope{}, fmt.Errorf("replication: unmarshal envelope: %w", err)
	}
	if e.Method == "" {
		return envelope{}, fmt.Errorf("replication: envelope missing method")
	}
	return e, nil
}
