package apclient

import (
	"context"
	"sync"
	"time"

	"steerd.dev/steerd/internal/wire"
)

// Mock implements APClient entirely in memory, for scenario tests that
// exercise the control loops and event bus without a real AP socket.
type Mock struct {
	mu       sync.Mutex
	Clients  map[wire.MacAddr]ClientsReply
	Deleted  []DeleteCall
	subs     map[wire.MacAddr]chan wire.Frame
	BusyMap  map[wire.MacAddr][2]uint32
}

// DeleteCall records one DelClient invocation for assertions.
type DeleteCall struct {
	BSSID, Client wire.MacAddr
	Reason        uint16
	Deauth        bool
	BanTime       time.Duration
}

// NewMock constructs an empty Mock.
func NewMock() *Mock {
	return &Mock{
		Clients: make(map[wire.MacAddr]ClientsReply),
		subs:    make(map[wire.MacAddr]chan wire.Frame),
		BusyMap: make(map[wire.MacAddr][2]uint32),
	}
}

// Subscribe implements APClient.
func (m *Mock) Subscribe(ctx context.Context, binding wire.MacAddr) (<-chan wire.Frame, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan wire.Frame, 16)
	m.subs[binding] = ch
	return ch, func() {}, nil
}

// Inject pushes a frame to any subscriber registered for bssid, simulating
// an AP-originated event in tests.
func (m *Mock) Inject(bssid wire.MacAddr, f wire.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subs[bssid]; ok {
		ch <- f
	}
}

// GetClients implements APClient.
func (m *Mock) GetClients(ctx context.Context, bssid wire.MacAddr) (ClientsReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Clients[bssid], nil
}

// DelClient implements APClient.
func (m *Mock) DelClient(ctx context.Context, bssid, client wire.MacAddr, reason uint16, deauth bool, banTime time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, DeleteCall{BSSID: bssid, Client: client, Reason: reason, Deauth: deauth, BanTime: banTime})
	return nil
}

// ChannelBusy implements APClient.
func (m *Mock) ChannelBusy(ctx context.Context, bssid wire.MacAddr) (uint32, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.BusyMap[bssid]
	return v[0], v[1], nil
}
