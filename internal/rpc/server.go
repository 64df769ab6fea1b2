// Package rpc implements the control RPC surface: a small HTTP API exposing
// add_mac, get_hearing_map, and get_network, plus a websocket push of store
// change notifications and a Prometheus /metrics endpoint.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/logging"
	"steerd.dev/steerd/internal/metrics"
	"steerd.dev/steerd/internal/scoring"
	"steerd.dev/steerd/internal/store"
)

// Replicator is the subset of the replication transport the server needs to
// propagate an admin-originated add_mac.
type Replicator interface {
	Broadcast(method string, payload any) error
}

// Server serves the control RPC surface over HTTP.
type Server struct {
	store       *store.Store
	metric      func() config.Metric
	macListPath string
	replicator  Replicator
	logger      *logging.Logger
	registry    *metrics.Registry

	mux *http.ServeMux

	upgrader websocket.Upgrader
	wsMu     sync.RWMutex
	wsConns  map[*websocket.Conn]struct{}
}

// New builds a Server. macListPath is where add_mac appends newly permitted
// addresses (see internal/store's PermitAppendFile).
func New(st *store.Store, metric func() config.Metric, macListPath string, replicator Replicator, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		store:       st,
		metric:      metric,
		macListPath: macListPath,
		replicator:  replicator,
		logger:      logger.WithComponent("rpc"),
		registry:    metrics.Get(),
		wsConns:     make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.mux = s.routes()
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/add_mac", s.handleAddMAC)
	mux.HandleFunc("GET /api/hearing_map", s.handleHearingMap)
	mux.HandleFunc("GET /api/network", s.handleNetwork)
	mux.HandleFunc("GET /api/watch", s.handleWatch)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rw, r)
	s.registry.RPCRequests.WithLabelValues(r.URL.Path, http.StatusText(rw.status)).Inc()
	s.registry.RPCLatency.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Run starts an HTTP listener on addr and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	go func() {
		sub, cancel := s.store.Subscribe(64)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-sub:
				if !ok {
					return
				}
				s.broadcastChange(c)
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleAddMAC(w http.ResponseWriter, r *http.Request) {
	var args AddMACArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	added := s.store.PermitInsert(args.Addr)
	if added {
		if err := s.store.PermitAppendFile(s.macListPath, args.Addr); err != nil {
			s.logger.Warn("add_mac: failed to persist to mac list file", "path", s.macListPath, "error", err)
		}
		if s.replicator != nil {
			if err := s.replicator.Broadcast("addmac", struct {
				Addr string `json:"addr"`
			}{Addr: args.Addr.String()}); err != nil {
				s.logger.Warn("add_mac: replication failed", "error", err)
			}
		}
	}

	writeJSON(w, AddMACReply{Added: added})
}

func (s *Server) handleHearingMap(w http.ResponseWriter, r *http.Request) {
	m := s.metric()
	reply := make(HearingMapReply)

	for _, p := range s.store.ProbeSnapshot() {
		ap, ok := s.store.APGet(p.BSSID)
		if !ok {
			continue
		}
		ssid := ap.SSID
		client := p.Client.String()
		bssid := p.BSSID.String()

		if _, ok := reply[ssid]; !ok {
			reply[ssid] = make(map[string]map[string]APHearing)
		}
		if _, ok := reply[ssid][client]; !ok {
			reply[ssid][client] = make(map[string]APHearing)
		}
		reply[ssid][client][bssid] = APHearing{
			Signal:     p.Signal,
			FreqMHz:    p.FreqMHz,
			HTSupport:  p.HTCapable,
			VHTSupport: p.VHTCapable,
			Score:      scoring.Score(ap, p, m),
		}
	}

	writeJSON(w, reply)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	reply := make(NetworkReply)

	for _, c := range s.store.ClientSnapshot() {
		ap, ok := s.store.APGet(c.BSSID)
		if !ok {
			continue
		}
		ssid := ap.SSID
		bssid := c.BSSID.String()

		if _, ok := reply[ssid]; !ok {
			reply[ssid] = make(map[string]NetworkAP)
		}
		entry, ok := reply[ssid][bssid]
		if !ok {
			entry = NetworkAP{
				SSID:               ap.SSID,
				FreqMHz:            ap.FreqMHz,
				HT:                 ap.HT,
				VHT:                ap.VHT,
				ChannelUtilization: ap.ChannelUtilization,
			}
		}
		entry.Clients = append(entry.Clients, NetworkClient{
			Addr:       c.Client.String(),
			HTSupport:  c.HTSupported,
			VHTSupport: c.VHTSupported,
		})
		reply[ssid][bssid] = entry
	}

	writeJSON(w, reply)
}

// handleWatch upgrades to a websocket and pushes every store.Change as JSON
// until the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("watch: upgrade failed", "error", err)
		return
	}

	s.wsMu.Lock()
	s.wsConns[conn] = struct{}{}
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConns, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	// Drain inbound control frames (pings, close) so the connection stays
	// alive; this server never expects client-sent payloads on /api/watch.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcastChange(c store.Change) {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	for conn := range s.wsConns {
		if err := conn.WriteJSON(c); err != nil {
			s.logger.Debug("watch: write failed, dropping subscriber", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
