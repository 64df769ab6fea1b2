package apclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/wire"
)

// rpcRequest/rpcResponse are the Unix-socket JSON-RPC envelope. One call is
// one request line, answered by exactly one response line; the subscribe
// stream shares the same connection and is told apart by id == "".
type rpcRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID    string          `json:"id"`
	Error string          `json:"error,omitempty"`
	Frame *wire.Frame     `json:"frame,omitempty"`
	Busy  uint32          `json:"busy,omitempty"`
	Total uint32          `json:"total,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SocketClient talks the narrow APClient protocol over a single Unix
// domain socket, as exposed by one local AP's management service. There is
// one dedicated reader goroutine per connection (grounded on the
// blocking-recvfrom-worker pattern the source uses per socket, but here
// feeding a channel instead of mixing a blocking thread with callbacks).
type SocketClient struct {
	path string

	mu      sync.Mutex
	conn    net.Conn
	enc     *json.Encoder
	dec     *json.Decoder
	pending map[string]chan rpcResponse
	subs    map[string]chan wire.Frame
	nextID  uint64

	logger *logging.Logger
}

// NewSocketClient connects to the Unix socket at path.
func NewSocketClient(path string, logger *logging.Logger) (*SocketClient, error) {
	conn, err := net.DialTimeout("unix", path, RPCTimeout)
	if err != nil {
		return nil, fmt.Errorf("apclient: dial %s: %w", path, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &SocketClient{
		path:    path,
		conn:    conn,
		enc:     json.NewEncoder(conn),
		dec:     json.NewDecoder(conn),
		pending: make(map[string]chan rpcResponse),
		subs:    make(map[string]chan wire.Frame),
		logger:  logger.WithComponent("apclient"),
	}
	go c.readLoop()
	return c, nil
}

func (c *SocketClient) readLoop() {
	for {
		var resp rpcResponse
		if err := c.dec.Decode(&resp); err != nil {
			c.logger.Warn("socket closed", "path", c.path, "error", err)
			c.closeAll()
			return
		}
		if resp.ID == "" && resp.Frame != nil {
			c.mu.Lock()
			for _, ch := range c.subs {
				select {
				case ch <- *resp.Frame:
				default:
				}
			}
			c.mu.Unlock()
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *SocketClient) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *SocketClient) call(ctx context.Context, method string, params any) (rpcResponse, error) {
	c.mu.Lock()
	c.nextID++
	id := fmt.Sprintf("%d", c.nextID)
	ch := make(chan rpcResponse, 1)
	c.pending[id] = ch
	raw, err := json.Marshal(params)
	if err != nil {
		c.mu.Unlock()
		return rpcResponse{}, fmt.Errorf("apclient: marshal params: %w", err)
	}
	if encErr := c.enc.Encode(rpcRequest{ID: id, Method: method, Params: raw}); encErr != nil {
		delete(c.pending, id)
		c.mu.Unlock()
		return rpcResponse{}, fmt.Errorf("apclient: send %s: %w", method, encErr)
	}
	c.mu.Unlock()

	select {
	case resp, ok := <-ch:
		if !ok {
			return rpcResponse{}, fmt.Errorf("apclient: connection closed during %s", method)
		}
		if resp.Error != "" {
			return rpcResponse{}, fmt.Errorf("apclient: %s: %s", method, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return rpcResponse{}, ctx.Err()
	case <-time.After(RPCTimeout):
		return rpcResponse{}, fmt.Errorf("apclient: %s timed out", method)
	}
}

// Subscribe implements APClient.
func (c *SocketClient) Subscribe(ctx context.Context, binding wire.MacAddr) (<-chan wire.Frame, func(), error) {
	id := binding.String()
	ch := make(chan wire.Frame, 32)
	c.mu.Lock()
	c.subs[id] = ch
	c.mu.Unlock()

	if _, err := c.call(ctx, "subscribe", map[string]string{"bssid": id}); err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return nil, nil, err
	}

	cancel := func() {
		c.mu.Lock()
		if existing, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(existing)
		}
		c.mu.Unlock()
	}
	return ch, cancel, nil
}

// GetClients implements APClient.
func (c *SocketClient) GetClients(ctx context.Context, bssid wire.MacAddr) (ClientsReply, error) {
	resp, err := c.call(ctx, "get_clients", map[string]string{"bssid": bssid.String()})
	if err != nil {
		return ClientsReply{}, err
	}
	var reply ClientsReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return ClientsReply{}, fmt.Errorf("apclient: decode get_clients reply: %w", err)
	}
	return reply, nil
}

// DelClient implements APClient.
func (c *SocketClient) DelClient(ctx context.Context, bssid, client wire.MacAddr, reason uint16, deauth bool, banTime time.Duration) error {
	_, err := c.call(ctx, "del_client", map[string]any{
		"bssid":  bssid.String(),
		"addr":   client.String(),
		"reason": reason,
		"deauth": deauth,
		"ban_ms": banTime.Milliseconds(),
	})
	return err
}

// ChannelBusy implements APClient.
func (c *SocketClient) ChannelBusy(ctx context.Context, bssid wire.MacAddr) (uint32, uint32, error) {
	resp, err := c.call(ctx, "channel_busy", map[string]string{"bssid": bssid.String()})
	if err != nil {
		return 0, 0, err
	}
	return resp.Busy, resp.Total, nil
}

// Close closes the underlying connection.
func (c *SocketClient) Close() error {
	return c.conn.Close()
}
