package replication

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"steerd.dev/steerd/internal/logging"
)

// maxDatagramSize is the MTU bound for datagram-mode frames; larger
// messages are dropped with an error log rather than fragmented.
const maxDatagramSize = 500

// datagramTransport implements UDP multicast (network.option 0) or
// broadcast (network.option 1) replication. A single PacketConn is shared
// for send and receive.
type datagramTransport struct {
	conn      *net.UDPConn
	pconn     *ipv4.PacketConn
	dest      *net.UDPAddr
	broadcast bool
	crypt     *cryptor
	logger    *logging.Logger

	onEnvelope func(envelope)
}

func newDatagramTransport(ip string, port int, broadcast bool, crypt *cryptor, logger *logging.Logger) (*datagramTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("replication: resolve listen addr: %w", err)
	}

	var conn *net.UDPConn
	group := net.ParseIP(ip)
	if !broadcast && group != nil && group.IsMulticast() {
		conn, err = net.ListenMulticastUDP("udp4", nil, &net.UDPAddr{IP: group, Port: port})
	} else {
		conn, err = net.ListenUDP("udp4", laddr)
	}
	if err != nil {
		return nil, fmt.Errorf("replication: listen: %w", err)
	}

	dest, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("replication: resolve dest: %w", err)
	}

	t := &datagramTransport{
		conn:      conn,
		pconn:     ipv4.NewPacketConn(conn),
		dest:      dest,
		broadcast: broadcast,
		crypt:     crypt,
		logger:    logger.WithComponent("replication-datagram"),
	}
	return t, nil
}

// Send serializes and sends one envelope as a single UDP datagram.
func (t *datagramTransport) Send(method string, payload any) error {
	raw, err := encodeEnvelope(method, payload)
	if err != nil {
		return err
	}
	if t.crypt != nil {
		raw, err = t.crypt.seal(raw)
		if err != nil {
			return fmt.Errorf("replication: seal: %w", err)
		}
	}
	if len(raw) > maxDatagramSize {
		err = fmt.Errorf("replication: message of %d bytes exceeds datagram MTU bound %d", len(raw), maxDatagramSize)
		t.logger.Error("dropping oversize datagram", "method", method, "error", err)
		return err
	}
	_, err = t.conn.WriteToUDP(raw, t.dest)
	return err
}

// Run reads datagrams until ctx is cancelled, decoding and delivering each
// to onEnvelope. Decryption or decode failures are logged and the packet
// dropped; they never abort the loop.
func (t *datagramTransport) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.conn.Close()
	}()

	buf := make([]byte, 65536)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("replication: read: %w", err)
		}
		raw := append([]byte(nil), buf[:n]...)
		if t.crypt != nil {
			raw, err = t.crypt.open(raw)
			if err != nil {
				t.logger.Warn("dropping undecryptable datagram", "error", err)
				continue
			}
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			t.logger.Warn("dropping malformed datagram", "error", err)
			continue
		}
		if t.onEnvelope != nil {
			t.onEnvelope(env)
		}
	}
}

func (t *datagramTransport) Close() error {
	return t.conn.Close()
}
