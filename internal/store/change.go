package store

import "steerd.dev/steerd/internal/wire"

// ChangeType identifies the kind of mutation a Change describes.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Table names a mutated table, for Change.Table and metrics labels.
type Table string

const (
	TableProbes  Table = "probes"
	TableClients Table = "clients"
	TableAPs     Table = "aps"
	TableDenied  Table = "denied"
	TablePermit  Table = "permit"
)

// Change describes one mutation applied to the store, published to
// subscribers such as the control RPC's websocket stream.
type Change struct {
	Type   ChangeType
	Table  Table
	BSSID  wire.MacAddr
	Client wire.MacAddr
	Origin Origin
}
