// Package discovery resolves sibling controllers via mDNS, so the
// replication mesh can find peers without a static configuration list.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"steerd.dev/steerd/internal/logging"
)

// ServiceName is the mDNS service type peer controllers announce themselves
// under.
const ServiceName = "_steerd._tcp.local."

// MulticastAddr is the standard mDNS group and port.
const MulticastAddr = "224.0.0.251:5353"

// Peer is one discovered sibling controller.
type Peer struct {
	Host string
	IP   net.IP
	Port int
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Resolver queries mDNS for ServiceName once per Discover call. It holds no
// background goroutine: PeerDiscoveryTask calls Discover on its own schedule.
type Resolver struct {
	client  *dns.Client
	iface   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewResolver builds a Resolver. iface may be empty to let the OS pick the
// multicast-capable interface.
func NewResolver(iface string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		client:  &dns.Client{Timeout: 2 * time.Second, UDPSize: 4096},
		iface:   iface,
		timeout: 2 * time.Second,
		logger:  logger.WithComponent("discovery"),
	}
}

// Discover sends one PTR query for ServiceName and resolves every answer's
// SRV/A records into a Peer. It tolerates partial failures: a peer whose A
// record cannot be resolved is skipped rather than aborting the whole query.
func (r *Resolver) Discover(ctx context.Context) ([]Peer, error) {
	conn, err := r.dial()
	if err != nil {
		return nil, fmt.Errorf("discovery: dial: %w", err)
	}
	defer conn.Close()

	msg := new(dns.Msg)
	msg.SetQuestion(ServiceName, dns.TypePTR)
	msg.RecursionDesired = false

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(r.timeout)
	}
	conn.SetDeadline(deadline)

	resp, _, err := r.client.ExchangeWithConn(msg, &dns.Conn{Conn: conn})
	if err != nil {
		return nil, fmt.Errorf("discovery: query %s: %w", ServiceName, err)
	}

	var instances []string
	for _, ans := range resp.Answer {
		if ptr, ok := ans.(*dns.PTR); ok {
			instances = append(instances, ptr.Ptr)
		}
	}

	var peers []Peer
	for _, instance := range instances {
		p, err := r.resolveInstance(ctx, instance)
		if err != nil {
			r.logger.Warn("discovery: resolve instance failed", "instance", instance, "error", err)
			continue
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func (r *Resolver) dial() (net.Conn, error) {
	addr, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, err
	}
	var laddr *net.UDPAddr
	if r.iface != "" {
		if ifi, err := net.InterfaceByName(r.iface); err == nil {
			if addrs, _ := ifi.Addrs(); len(addrs) > 0 {
				if ipnet, ok := addrs[0].(*net.IPNet); ok {
					laddr = &net.UDPAddr{IP: ipnet.IP}
				}
			}
		}
	}
	return net.DialUDP("udp4", laddr, addr)
}

// resolveInstance issues SRV and A queries for one instance name, both over
// the same shared-connection pattern the PTR query used.
func (r *Resolver) resolveInstance(ctx context.Context, instance string) (Peer, error) {
	conn, err := r.dial()
	if err != nil {
		return Peer{}, err
	}
	defer conn.Close()
	dnsConn := &dns.Conn{Conn: conn}

	srvMsg := new(dns.Msg)
	srvMsg.SetQuestion(instance, dns.TypeSRV)
	srvResp, _, err := r.client.ExchangeWithConn(srvMsg, dnsConn)
	if err != nil {
		return Peer{}, fmt.Errorf("srv query: %w", err)
	}

	var target string
	var port int
	for _, ans := range srvResp.Answer {
		if srv, ok := ans.(*dns.SRV); ok {
			target = srv.Target
			port = int(srv.Port)
			break
		}
	}
	if target == "" {
		return Peer{}, fmt.Errorf("no SRV record for %s", instance)
	}

	aMsg := new(dns.Msg)
	aMsg.SetQuestion(target, dns.TypeA)
	aResp, _, err := r.client.ExchangeWithConn(aMsg, dnsConn)
	if err != nil {
		return Peer{}, fmt.Errorf("a query: %w", err)
	}
	for _, ans := range aResp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return Peer{Host: strings.TrimSuffix(target, "."), IP: a.A, Port: port}, nil
		}
	}
	return Peer{}, fmt.Errorf("no A record for %s", target)
}

// ParseHostPort is a small convenience used by the mesh when peers arrive
// from configuration rather than discovery.
func ParseHostPort(s string) (net.IP, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return nil, 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, fmt.Errorf("discovery: bad port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			return nil, 0, fmt.Errorf("discovery: resolve %q: %w", host, err)
		}
		ip = resolved.IP
	}
	return ip, port, nil
}
