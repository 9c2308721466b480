package pv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/protocol"
)

const (
	// DefaultTimeout bounds reads and writes issued on behalf of field
	// models. A write that takes longer is reported as a timeout and the
	// owning binding treated as disconnected.
	DefaultTimeout = 5 * time.Second

	// DefaultDialTimeout bounds a single gateway connection attempt.
	DefaultDialTimeout = 5 * time.Second

	// DefaultReconnectDelay is the initial delay between reconnection
	// attempts to the gateway.
	DefaultReconnectDelay = 1 * time.Second

	// DefaultMaxReconnectDelay caps the exponential reconnect backoff.
	DefaultMaxReconnectDelay = 30 * time.Second

	eventBufferSize = 256
)

// Gateway is a Provider backed by a single websocket connection to a PV
// gateway service speaking the protocol package's envelope. The
// connection is maintained in the background: on transport loss every
// live subscription receives a disconnected event, and after
// reconnection all monitors are re-issued.
type Gateway struct {
	url string

	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[SubID]Address
	pending map[uint64]chan protocol.Message
	nextSub SubID
	nextReq uint64
	closed  bool

	writeMu sync.Mutex

	events chan Event
	done   chan struct{}
}

// NewGateway creates a gateway client for the given websocket URL
// (e.g. "ws://pvgw.local:8701/ws"). Start must be called before use.
func NewGateway(url string) *Gateway {
	return &Gateway{
		url:               url,
		ReconnectDelay:    DefaultReconnectDelay,
		MaxReconnectDelay: DefaultMaxReconnectDelay,
		subs:              make(map[SubID]Address),
		pending:           make(map[uint64]chan protocol.Message),
		events:            make(chan Event, eventBufferSize),
		done:              make(chan struct{}),
	}
}

// Start launches the background connection loop. Subscriptions opened
// before the first successful dial simply stay disconnected until the
// gateway is reachable.
func (g *Gateway) Start() {
	go g.run()
}

// Monitor implements Provider.
func (g *Gateway) Monitor(addr Address) (SubID, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return 0, ErrClosed
	}
	g.nextSub++
	id := g.nextSub
	g.subs[id] = addr
	conn := g.conn
	g.mu.Unlock()

	if conn != nil {
		if err := g.send(conn, protocol.NewMonitor(uint64(id), addr.String())); err != nil {
			// The run loop will notice the broken transport and
			// re-issue this monitor after reconnecting.
			logging.Warn("monitor send failed", zap.String("pv", addr.String()), zap.Error(err))
		}
	}

	return id, nil
}

// Unmonitor implements Provider.
func (g *Gateway) Unmonitor(id SubID) {
	g.mu.Lock()
	_, live := g.subs[id]
	delete(g.subs, id)
	conn := g.conn
	g.mu.Unlock()

	if live && conn != nil {
		if err := g.send(conn, protocol.NewUnmonitor(uint64(id))); err != nil {
			logging.Warn("unmonitor send failed", zap.Uint64("sub", uint64(id)), zap.Error(err))
		}
	}
}

// Put implements Provider.
func (g *Gateway) Put(ctx context.Context, addr Address, value Value) error {
	num := value.Number
	msg := protocol.Message{Op: protocol.OpPut, PV: addr.String(), Value: &num, Text: value.Text}

	_, err := g.roundTrip(ctx, addr, protocol.OpPut, msg)
	return err
}

// Get implements Provider.
func (g *Gateway) Get(ctx context.Context, addr Address) (Value, error) {
	msg := protocol.Message{Op: protocol.OpGet, PV: addr.String()}
	resp, err := g.roundTrip(ctx, addr, protocol.OpGet, msg)
	if err != nil {
		return Value{}, err
	}

	var val Value
	if resp.Value != nil {
		val.Number = *resp.Value
	}
	val.Text = resp.Text

	return val, nil
}

// Events implements Provider.
func (g *Gateway) Events() <-chan Event { return g.events }

// Close implements Provider.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.subs = make(map[SubID]Address)
	for req, ch := range g.pending {
		close(ch)
		delete(g.pending, req)
	}
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	close(g.done)
	if conn != nil {
		return conn.Close()
	}

	return nil
}

func (g *Gateway) roundTrip(ctx context.Context, addr Address, op string, msg protocol.Message) (protocol.Message, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: ErrClosed}
	}
	conn := g.conn
	if conn == nil {
		g.mu.Unlock()
		return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: ErrNotConnected}
	}
	g.nextReq++
	req := g.nextReq
	reply := make(chan protocol.Message, 1)
	g.pending[req] = reply
	g.mu.Unlock()

	msg.Req = req
	if err := g.send(conn, msg); err != nil {
		g.dropPending(req)
		return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: err}
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: ErrClosed}
		}
		if resp.OK != nil && !*resp.OK {
			return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: fmt.Errorf("gateway: %s", resp.Error)}
		}
		return resp, nil
	case <-ctx.Done():
		g.dropPending(req)
		return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: ErrTimeout}
	case <-g.done:
		return protocol.Message{}, &OpError{Op: op, Addr: addr, Err: ErrClosed}
	}
}

func (g *Gateway) dropPending(req uint64) {
	g.mu.Lock()
	delete(g.pending, req)
	g.mu.Unlock()
}

func (g *Gateway) send(conn *websocket.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}

// run maintains the websocket connection for the lifetime of the gateway,
// with capped exponential backoff between attempts.
func (g *Gateway) run() {
	delay := g.ReconnectDelay

	for {
		select {
		case <-g.done:
			return
		default:
		}

		conn, err := g.dial()
		if err != nil {
			logging.Warn("gateway dial failed",
				zap.String("url", g.url),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
			select {
			case <-time.After(delay):
			case <-g.done:
				return
			}
			delay *= 2
			if delay > g.MaxReconnectDelay {
				delay = g.MaxReconnectDelay
			}
			continue
		}

		delay = g.ReconnectDelay
		logging.Info("gateway connected", zap.String("url", g.url))

		g.attach(conn)
		g.readLoop(conn)
		g.detach(conn)

		select {
		case <-g.done:
			return
		default:
		}
	}
}

func (g *Gateway) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultDialTimeout}

	conn, _, err := dialer.Dial(g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", g.url, err)
	}

	return conn, nil
}

// attach installs the live connection and re-issues every monitor that
// was opened before or during the outage.
func (g *Gateway) attach(conn *websocket.Conn) {
	g.mu.Lock()
	g.conn = conn
	resub := make(map[SubID]Address, len(g.subs))
	for id, addr := range g.subs {
		resub[id] = addr
	}
	g.mu.Unlock()

	for id, addr := range resub {
		if err := g.send(conn, protocol.NewMonitor(uint64(id), addr.String())); err != nil {
			logging.Warn("re-monitor failed", zap.String("pv", addr.String()), zap.Error(err))
			return
		}
	}
}

// detach clears the dead connection and synthesizes a disconnected event
// for every live subscription, since the gateway can no longer report
// their state.
func (g *Gateway) detach(conn *websocket.Conn) {
	_ = conn.Close()

	g.mu.Lock()
	if g.conn == conn {
		g.conn = nil
	}
	subs := make([]SubID, 0, len(g.subs))
	for id := range g.subs {
		subs = append(subs, id)
	}
	for req, ch := range g.pending {
		close(ch)
		delete(g.pending, req)
	}
	g.mu.Unlock()

	for _, id := range subs {
		g.emit(Event{Sub: id, Kind: EventDisconnected})
	}
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-g.done:
			default:
				logging.Warn("gateway read failed", zap.Error(err))
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logging.Warn("gateway sent malformed message", zap.ByteString("data", data), zap.Error(err))
			continue
		}

		g.dispatch(msg)
	}
}

func (g *Gateway) dispatch(msg protocol.Message) {
	switch msg.Op {
	case protocol.OpUpdate:
		if msg.Conn != nil && !*msg.Conn {
			g.emit(Event{Sub: SubID(msg.Sub), Kind: EventDisconnected})
			return
		}
		ev := Event{Sub: SubID(msg.Sub), Kind: EventValue, Meta: metaFrom(msg)}
		if msg.Value != nil {
			ev.Value.Number = *msg.Value
		}
		ev.Value.Text = msg.Text
		g.emit(ev)

	case protocol.OpConn:
		kind := EventDisconnected
		if msg.Conn != nil && *msg.Conn {
			kind = EventConnected
		}
		g.emit(Event{Sub: SubID(msg.Sub), Kind: kind, Meta: metaFrom(msg)})

	case protocol.OpResult:
		g.mu.Lock()
		reply, ok := g.pending[msg.Req]
		delete(g.pending, msg.Req)
		g.mu.Unlock()
		if ok {
			reply <- msg
		}

	default:
		logging.Warn("gateway sent unknown op", zap.String("op", msg.Op))
	}
}

func metaFrom(msg protocol.Message) *Meta {
	if msg.Precision == nil && msg.Units == "" && len(msg.Enums) == 0 {
		return nil
	}

	meta := &Meta{Units: msg.Units, EnumStrings: msg.Enums}
	if msg.Precision != nil {
		meta.Precision = *msg.Precision
		meta.HasPrecision = true
	}

	return meta
}

// emit delivers an event without blocking forever: if the consumer has
// gone away (Close), delivery is abandoned.
func (g *Gateway) emit(ev Event) {
	select {
	case g.events <- ev:
	case <-g.done:
	}
}
