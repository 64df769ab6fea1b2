package store

import (
	"time"

	"steerd.dev/steerd/internal/wire"
)

// Origin marks whether an observation was produced by a locally attached AP
// or received over the replication transport. It is the mechanism that
// prevents replication loops: Remote-origin inserts are never re-broadcast.
type Origin int

const (
	Local Origin = iota
	Remote
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "local"
}

// Key identifies a row shared by the Probes, Clients and Denied tables.
type Key struct {
	BSSID  wire.MacAddr
	Client wire.MacAddr
}

// ProbeEntry is a client probe-request observation heard by one AP.
type ProbeEntry struct {
	BSSID      wire.MacAddr
	Client     wire.MacAddr
	Target     wire.MacAddr
	Signal     int32
	FreqMHz    uint32
	HTCapable  bool
	VHTCapable bool
	Counter    uint32
	LastSeen   time.Time
}

// RequestKind distinguishes the three 802.11 management-frame classes that
// flow through the decision engine.
type RequestKind int

const (
	RequestProbe RequestKind = iota
	RequestAuth
	RequestAssoc
)

func (k RequestKind) String() string {
	switch k {
	case RequestAuth:
		return "auth"
	case RequestAssoc:
		return "assoc"
	default:
		return "probe"
	}
}

// DeniedRequest records an auth/assoc request that was refused, so a
// re-appearing client at the same AP within the retention window gets the
// same verdict without re-scoring.
type DeniedRequest struct {
	BSSID    wire.MacAddr
	Client   wire.MacAddr
	Kind     RequestKind
	Reason   uint16
	LastSeen time.Time
}

// ClientEntry is an associated station known to one AP.
type ClientEntry struct {
	BSSID       wire.MacAddr
	Client      wire.MacAddr
	Flags       wire.ClientFlags
	AID         uint16
	FreqMHz     uint32
	HTSupported bool
	VHTSupported bool
	LastSeen    time.Time
}

// AP is one access point's advertised state.
type AP struct {
	BSSID              wire.MacAddr
	SSID               string
	FreqMHz            uint32
	HT                 bool
	VHT                bool
	ChannelUtilization uint8
	StationCount       uint16
	CollisionDomain    int32
	Bandwidth          int32
	LastSeen           time.Time
}

// LocalAPBinding is a locally attached AP's subscription record, owned by
// the control loops and the local event bus.
type LocalAPBinding struct {
	ID          string
	IfaceName   string
	BSSID       wire.MacAddr
	SSID        string
	HT          bool
	VHT         bool
	SamplesSum  uint64
	NumSamples  uint32
	Average     uint8
}
