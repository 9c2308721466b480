// Package gwsim is a self-contained gateway simulator.
//
// It serves the protocol package's envelope over a websocket endpoint
// and backs it with an in-memory table of simulated variables, each
// optionally random-walking at a fixed cadence. The simulator exists so
// pages can be developed and demonstrated without a control system, and
// so the client side of the protocol has something real to test against.
package gwsim

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/protocol"
	"github.com/veskel/pvdash/internal/pv/discovery"
)

// Defaults for the listen configuration.
const (
	DefaultPort = 8701
	DefaultPath = "/ws"
	DefaultTick = 1 * time.Second
)

// writeWait bounds a single message write to a client.
const writeWait = 10 * time.Second

// Config holds the simulator configuration.
type Config struct {
	Host     string
	Port     int
	Path     string        // websocket endpoint path
	Tick     time.Duration // random walk cadence
	Announce bool          // advertise via mDNS as a discoverable gateway
	Instance string        // mDNS instance name
	Vars     []VarConfig
}

// Server simulates a PV gateway.
type Server struct {
	cfg Config

	upgrader websocket.Upgrader

	mu      sync.Mutex
	vars    map[string]*simVar
	clients map[*client]struct{}

	listener net.Listener
	httpSrv  *http.Server
	mdns     *zeroconf.Server

	done chan struct{}
	wg   sync.WaitGroup
}

type simVar struct {
	cfg   VarConfig
	value float64
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[uint64]string
}

// New creates a simulator for the given configuration.
func New(cfg Config) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}

	s := &Server{
		cfg:     cfg,
		vars:    make(map[string]*simVar),
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
	for _, vc := range cfg.Vars {
		s.vars[vc.Name] = &simVar{cfg: vc, value: vc.Initial}
	}
	return s
}

// Start begins listening and launches the value walker. It returns once
// the listener is bound; serving continues in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gwsim: listen %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWS)
	s.httpSrv = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("simulator serve failed", zap.Error(err))
		}
	}()

	s.wg.Add(1)
	go s.walk()

	if s.cfg.Announce {
		instance := s.cfg.Instance
		if instance == "" {
			instance = "pvdash-sim"
		}
		mdns, err := zeroconf.Register(instance, discovery.ServiceType, "local.",
			s.Port(), []string{"path=" + s.cfg.Path}, nil)
		if err != nil {
			logging.Warn("mDNS announce failed", zap.Error(err))
		} else {
			s.mdns = mdns
		}
	}

	logging.Info("simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.cfg.Path),
		zap.Int("pvs", len(s.vars)))
	return nil
}

// Port returns the bound port, useful when Config.Port was 0.
func (s *Server) Port() int {
	if s.listener == nil {
		return s.cfg.Port
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// URL returns the websocket URL clients should dial.
func (s *Server) URL() string {
	host := s.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("ws://%s:%d%s", host, s.Port(), s.cfg.Path)
}

// Stop shuts the simulator down and waits for its goroutines.
func (s *Server) Stop() error {
	close(s.done)
	if s.mdns != nil {
		s.mdns.Shutdown()
	}

	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, subs: make(map[uint64]string)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	logging.Info("client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.Close()
		logging.Info("client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logging.Warn("client sent malformed message", zap.Error(err))
			continue
		}

		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *client, msg protocol.Message) {
	switch msg.Op {
	case protocol.OpMonitor:
		s.handleMonitor(c, msg)
	case protocol.OpUnmonitor:
		c.mu.Lock()
		delete(c.subs, msg.Sub)
		c.mu.Unlock()
	case protocol.OpPut:
		s.handlePut(c, msg)
	case protocol.OpGet:
		s.handleGet(c, msg)
	default:
		logging.Warn("client sent unknown op", zap.String("op", msg.Op))
	}
}

func (s *Server) handleMonitor(c *client, msg protocol.Message) {
	c.mu.Lock()
	c.subs[msg.Sub] = msg.PV
	c.mu.Unlock()

	s.mu.Lock()
	v, ok := s.vars[msg.PV]
	var value float64
	var meta VarConfig
	if ok {
		value = v.value
		meta = v.cfg
	}
	s.mu.Unlock()

	if !ok {
		// Unknown variables stay permanently disconnected.
		s.send(c, protocol.NewConnState(msg.Sub, false))
		return
	}

	s.send(c, protocol.NewConnState(msg.Sub, true).
		WithMeta(meta.Precision, meta.Units, meta.Enums))
	s.send(c, protocol.NewUpdate(msg.Sub, value, meta.render(value)))
}

func (s *Server) handlePut(c *client, msg protocol.Message) {
	s.mu.Lock()
	v, ok := s.vars[msg.PV]
	if ok && msg.Value != nil {
		v.value = *msg.Value
	}
	s.mu.Unlock()

	if !ok {
		s.send(c, protocol.NewResult(msg.Req, fmt.Errorf("no such pv %q", msg.PV)))
		return
	}
	if msg.Value == nil {
		s.send(c, protocol.NewResult(msg.Req, fmt.Errorf("put without value")))
		return
	}

	s.send(c, protocol.NewResult(msg.Req, nil))
	s.broadcast(msg.PV)
}

func (s *Server) handleGet(c *client, msg protocol.Message) {
	s.mu.Lock()
	v, ok := s.vars[msg.PV]
	var value float64
	var meta VarConfig
	if ok {
		value = v.value
		meta = v.cfg
	}
	s.mu.Unlock()

	if !ok {
		s.send(c, protocol.NewResult(msg.Req, fmt.Errorf("no such pv %q", msg.PV)))
		return
	}

	result := protocol.NewResult(msg.Req, nil)
	result.Value = &value
	result.Text = meta.render(value)
	s.send(c, result)
}

// walk random-walks every variable with a nonzero amplitude and
// broadcasts the new samples.
func (s *Server) walk() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			changed := make([]string, 0, len(s.vars))
			for name, v := range s.vars {
				if v.cfg.Walk == 0 {
					continue
				}
				v.value += (rand.Float64()*2 - 1) * v.cfg.Walk
				changed = append(changed, name)
			}
			s.mu.Unlock()

			for _, name := range changed {
				s.broadcast(name)
			}
		}
	}
}

// broadcast sends the variable's current sample to every subscription on
// every client.
func (s *Server) broadcast(name string) {
	s.mu.Lock()
	v, ok := s.vars[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	value := v.value
	meta := v.cfg
	targets := make(map[*client][]uint64)
	for c := range s.clients {
		c.mu.Lock()
		for sub, pvName := range c.subs {
			if pvName == name {
				targets[c] = append(targets[c], sub)
			}
		}
		c.mu.Unlock()
	}
	s.mu.Unlock()

	text := meta.render(value)
	for c, subs := range targets {
		for _, sub := range subs {
			s.send(c, protocol.NewUpdate(sub, value, text))
		}
	}
}

func (s *Server) send(c *client, msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		logging.Error("encode failed", zap.Error(err))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Warn("write to client failed", zap.Error(err))
	}
}

// render produces the text form of a sample: the enum label for
// enumerated variables, a fixed-precision decimal otherwise.
func (vc VarConfig) render(value float64) string {
	if len(vc.Enums) > 0 {
		idx := int(value)
		if idx >= 0 && idx < len(vc.Enums) {
			return vc.Enums[idx]
		}
		return ""
	}
	prec := -1
	if vc.Precision != nil {
		prec = *vc.Precision
	}
	return strconv.FormatFloat(value, 'f', prec, 64)
}
