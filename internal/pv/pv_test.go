package pv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veskel/pvdash/internal/protocol"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name   string
		device string
		pv     string
		want   Address
	}{
		{"device prefix composed with colon", "PS1", "CURRENT", "PS1:CURRENT"},
		{"plain name used as-is", "", "SR:PRESSURE", "SR:PRESSURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Join(tt.device, tt.pv); got != tt.want {
				t.Errorf("Join(%q, %q) = %q, want %q", tt.device, tt.pv, got, tt.want)
			}
		})
	}
}

func TestDispatchEvents(t *testing.T) {
	g := NewGateway("ws://unused")

	connUp := true
	connDown := false
	val := 3.25
	prec := 2

	g.dispatch(protocol.Message{Op: protocol.OpConn, Sub: 4, Conn: &connUp, Precision: &prec, Units: "A"})
	g.dispatch(protocol.Message{Op: protocol.OpUpdate, Sub: 4, Value: &val, Text: "3.25"})
	g.dispatch(protocol.Message{Op: protocol.OpConn, Sub: 4, Conn: &connDown})

	ev := <-g.Events()
	if ev.Kind != EventConnected || ev.Sub != 4 {
		t.Fatalf("first event = %+v, want connected sub 4", ev)
	}
	if ev.Meta == nil || !ev.Meta.HasPrecision || ev.Meta.Precision != 2 || ev.Meta.Units != "A" {
		t.Fatalf("connected event meta = %+v", ev.Meta)
	}

	ev = <-g.Events()
	if ev.Kind != EventValue || ev.Value.Number != 3.25 || ev.Value.Text != "3.25" {
		t.Fatalf("value event = %+v", ev)
	}
	if ev.Meta != nil {
		t.Fatalf("value event carried unexpected meta %+v", ev.Meta)
	}

	ev = <-g.Events()
	if ev.Kind != EventDisconnected {
		t.Fatalf("third event = %+v, want disconnected", ev)
	}
}

func TestDispatchRoutesResults(t *testing.T) {
	g := NewGateway("ws://unused")

	reply := make(chan protocol.Message, 1)
	g.mu.Lock()
	g.pending[9] = reply
	g.mu.Unlock()

	ok := true
	g.dispatch(protocol.Message{Op: protocol.OpResult, Req: 9, OK: &ok})

	select {
	case resp := <-reply:
		if resp.OK == nil || !*resp.OK {
			t.Fatalf("result = %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("pending request never resolved")
	}

	g.mu.Lock()
	_, still := g.pending[9]
	g.mu.Unlock()
	if still {
		t.Fatal("pending entry not cleared after result")
	}
}

func TestRoundTripWithoutTransport(t *testing.T) {
	g := NewGateway("ws://unused")

	err := g.Put(context.Background(), "X:Y", NumberValue(1))
	if err == nil {
		t.Fatal("Put without transport should fail")
	}

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "put" {
		t.Fatalf("Put error = %v, want OpError for put", err)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Put error = %v, want ErrNotConnected", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	g := NewGateway("ws://unused")

	if err := g.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := g.Monitor("A:B"); err != ErrClosed {
		t.Fatalf("Monitor after Close = %v, want ErrClosed", err)
	}
}
