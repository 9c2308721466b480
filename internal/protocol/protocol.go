// Package protocol defines the JSON envelope exchanged between dashboard
// clients and a pvdash gateway over a websocket.
//
// One message shape covers every operation; optional fields are pointers
// so absence is detectable. Client-to-gateway ops are monitor, unmonitor,
// put, and get. Gateway-to-client ops are update (a value sample for a
// subscription), conn (a connection state change), and result (the reply
// to a put or get, correlated by request id).
package protocol

import (
	"encoding/json"
	"fmt"
)

// Operation names.
const (
	OpMonitor   = "monitor"
	OpUnmonitor = "unmonitor"
	OpPut       = "put"
	OpGet       = "get"
	OpUpdate    = "update"
	OpConn      = "conn"
	OpResult    = "result"
)

// Message is the wire envelope.
type Message struct {
	Op  string `json:"op"`
	Sub uint64 `json:"sub,omitempty"`
	Req uint64 `json:"req,omitempty"`
	PV  string `json:"pv,omitempty"`

	Conn  *bool    `json:"conn,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Text  string   `json:"text,omitempty"`

	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`

	Precision *int     `json:"precision,omitempty"`
	Units     string   `json:"units,omitempty"`
	Enums     []string `json:"enums,omitempty"`
}

// Encode marshals a message for the wire.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", msg.Op, err)
	}
	return data, nil
}

// Decode unmarshals one wire message.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: malformed message: %w", err)
	}
	if msg.Op == "" {
		return Message{}, fmt.Errorf("protocol: message without op")
	}
	return msg, nil
}

// NewMonitor builds a subscription request for pv tagged with sub.
func NewMonitor(sub uint64, pv string) Message {
	return Message{Op: OpMonitor, Sub: sub, PV: pv}
}

// NewUnmonitor builds a subscription release.
func NewUnmonitor(sub uint64) Message {
	return Message{Op: OpUnmonitor, Sub: sub}
}

// NewUpdate builds a value sample for a subscription.
func NewUpdate(sub uint64, value float64, text string) Message {
	v := value
	return Message{Op: OpUpdate, Sub: sub, Value: &v, Text: text}
}

// NewConnState builds a connection state change for a subscription.
func NewConnState(sub uint64, connected bool) Message {
	c := connected
	return Message{Op: OpConn, Sub: sub, Conn: &c}
}

// NewResult builds the reply to a put or get request. A nil err marks
// the operation as successful.
func NewResult(req uint64, err error) Message {
	ok := err == nil
	msg := Message{Op: OpResult, Req: req, OK: &ok}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

// WithMeta attaches variable metadata to a message.
func (m Message) WithMeta(precision *int, units string, enums []string) Message {
	m.Precision = precision
	m.Units = units
	m.Enums = enums
	return m
}
