// Package apclient is the seam to the AP management service: the request/
// response plumbing and subscription machinery that this daemon treats as
// an external collaborator. It is implemented here only narrowly enough to
// give the control loops and event bus something real to call.
package apclient

import (
	"context"
	"time"

	"steerd.dev/steerd/internal/wire"
)

// ClientsReply is the reply shape of a GetClients call: one AP's full
// client table plus its own advertised fields.
type ClientsReply = wire.ClientsData

// APClient is the narrow interface the control loops and event bus use to
// talk to one AP's management socket. Implementations own the
// request/response transport (Unix socket JSON-RPC in production, an
// in-memory fake in tests).
type APClient interface {
	// Subscribe registers for this binding's event stream. It returns a
	// channel of decoded frames and a cancel func that unsubscribes.
	Subscribe(ctx context.Context, binding wire.MacAddr) (<-chan wire.Frame, func(), error)

	// GetClients requests the full client table of the AP at bssid.
	GetClients(ctx context.Context, bssid wire.MacAddr) (ClientsReply, error)

	// DelClient asks the AP to evict client, optionally issuing a
	// deauthentication frame, with the given 802.11 status reason and ban
	// duration.
	DelClient(ctx context.Context, bssid, client wire.MacAddr, reason uint16, deauth bool, banTime time.Duration) error

	// ChannelBusy samples the radio's busy/total counters for bssid.
	ChannelBusy(ctx context.Context, bssid wire.MacAddr) (busy, total uint32, err error)
}

// RPCTimeout is the per-call timeout mandated for every AP RPC: expiry
// yields no state mutation and is logged as a Transient error.
const RPCTimeout = time.Second
