package wire

import (
	"encoding/json"
	"fmt"
)

// Method names carried on both the local event bus and the replication wire.
const (
	MethodProbe    = "probe"
	MethodClients  = "clients"
	MethodDeauth   = "deauth"
	MethodSetProbe = "setprobe"
	MethodAddMAC   = "addmac"
)

// Frame is the self-describing wire message: {method, data}. Dispatch always
// compares the full method string, never a prefix.
type Frame struct {
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
}

// EncodeFrame marshals method and payload into a Frame's wire bytes.
func EncodeFrame(method string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s payload: %w", method, err)
	}
	return json.Marshal(Frame{Method: method, Data: data})
}

// DecodeFrame parses raw bytes into a Frame. It does not decode Data, since
// its shape depends on Method.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Method == "" {
		return Frame{}, fmt.Errorf("%w: missing method", ErrMalformed)
	}
	return f, nil
}

// ProbeData is the payload of a "probe" frame.
type ProbeData struct {
	BSSID      MacAddr `json:"bssid"`
	Address    MacAddr `json:"address"`
	Target     MacAddr `json:"target,omitempty"`
	Signal     int32   `json:"signal"`
	Freq       uint32  `json:"freq"`
	HTSupport  bool    `json:"ht_support,omitempty"`
	VHTSupport bool    `json:"vht_support,omitempty"`
}

// ClientFlags mirror the association state bits of a connected station.
type ClientFlags struct {
	Auth       bool `json:"auth,omitempty"`
	Assoc      bool `json:"assoc,omitempty"`
	Authorized bool `json:"authorized,omitempty"`
	Preauth    bool `json:"preauth,omitempty"`
	WDS        bool `json:"wds,omitempty"`
	WMM        bool `json:"wmm,omitempty"`
	HT         bool `json:"ht,omitempty"`
	VHT        bool `json:"vht,omitempty"`
	WPS        bool `json:"wps,omitempty"`
	MFP        bool `json:"mfp,omitempty"`
}

// ClientsData is the payload of a "clients" frame: a full client-table
// report from one AP, used both for replication and for client-poll replies.
type ClientsData struct {
	Clients            map[MacAddr]ClientFlags `json:"clients"`
	BSSID              MacAddr                 `json:"bssid"`
	SSID               string                  `json:"ssid"`
	Freq               uint32                  `json:"freq"`
	HTSupported        bool                    `json:"ht_supported,omitempty"`
	VHTSupported       bool                    `json:"vht_supported,omitempty"`
	ChannelUtilization uint8                   `json:"channel_utilization"`
	CollisionDomain    int32                   `json:"collision_domain"`
	Bandwidth          int32                   `json:"bandwidth"`
}

// DeauthData is the payload of a "deauth" frame.
type DeauthData struct {
	BSSID   MacAddr `json:"bssid"`
	Address MacAddr `json:"address"`
}

// SetProbeData is the payload of a "setprobe" frame.
type SetProbeData struct {
	BSSID   MacAddr `json:"bssid"`
	Address MacAddr `json:"address"`
}

// AddMACData is the payload of an "addmac" frame.
type AddMACData struct {
	Addr MacAddr `json:"addr"`
}

// DecodePayload decodes f.Data into v, wrapping decode errors as ErrMalformed.
func DecodePayload(f Frame, v any) error {
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, f.Method, err)
	}
	return nil
}
