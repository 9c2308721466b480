package gwsim

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veskel/pvdash/internal/protocol"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	two := 2
	s := New(Config{
		Host: "127.0.0.1",
		Tick: time.Hour, // keep the walker quiet during assertions
		Vars: []VarConfig{
			{Name: "tec0:temp_sp", Initial: 23.5, Precision: &two, Units: " C"},
			{Name: "tec0:mode", Initial: 1, Enums: []string{"Off", "On"}},
		},
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.URL(), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", s.URL(), err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func readMsg(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestMonitorDeliversStateAndSnapshot(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestServer(t, s)

	sendMsg(t, conn, protocol.NewMonitor(1, "tec0:temp_sp"))

	state := readMsg(t, conn)
	if state.Op != protocol.OpConn || state.Sub != 1 || state.Conn == nil || !*state.Conn {
		t.Fatalf("first message = %+v, want conn true", state)
	}
	if state.Precision == nil || *state.Precision != 2 || state.Units != " C" {
		t.Errorf("meta = %+v", state)
	}

	update := readMsg(t, conn)
	if update.Op != protocol.OpUpdate || update.Value == nil || *update.Value != 23.5 {
		t.Fatalf("snapshot = %+v", update)
	}
	if update.Text != "23.50" {
		t.Errorf("snapshot text = %q", update.Text)
	}
}

func TestMonitorUnknownVariableStaysDisconnected(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestServer(t, s)

	sendMsg(t, conn, protocol.NewMonitor(2, "no:such"))

	state := readMsg(t, conn)
	if state.Op != protocol.OpConn || state.Conn == nil || *state.Conn {
		t.Fatalf("unknown pv reply = %+v, want conn false", state)
	}
}

func TestPutRepliesAndBroadcasts(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestServer(t, s)

	sendMsg(t, conn, protocol.NewMonitor(1, "tec0:temp_sp"))
	readMsg(t, conn) // conn state
	readMsg(t, conn) // snapshot

	val := 25.0
	sendMsg(t, conn, protocol.Message{Op: protocol.OpPut, Req: 7, PV: "tec0:temp_sp", Value: &val})

	// The result and the broadcast update both arrive; order between
	// them is not fixed.
	sawResult, sawUpdate := false, false
	for i := 0; i < 2; i++ {
		msg := readMsg(t, conn)
		switch msg.Op {
		case protocol.OpResult:
			if msg.Req != 7 || msg.OK == nil || !*msg.OK {
				t.Fatalf("result = %+v", msg)
			}
			sawResult = true
		case protocol.OpUpdate:
			if msg.Value == nil || *msg.Value != 25.0 {
				t.Fatalf("update = %+v", msg)
			}
			sawUpdate = true
		}
	}
	if !sawResult || !sawUpdate {
		t.Fatalf("sawResult=%t sawUpdate=%t", sawResult, sawUpdate)
	}
}

func TestPutUnknownVariableFails(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestServer(t, s)

	val := 1.0
	sendMsg(t, conn, protocol.Message{Op: protocol.OpPut, Req: 3, PV: "no:such", Value: &val})

	result := readMsg(t, conn)
	if result.Op != protocol.OpResult || result.OK == nil || *result.OK {
		t.Fatalf("result = %+v, want failure", result)
	}
}

func TestGetReturnsCurrentValue(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestServer(t, s)

	sendMsg(t, conn, protocol.Message{Op: protocol.OpGet, Req: 4, PV: "tec0:mode"})

	result := readMsg(t, conn)
	if result.Op != protocol.OpResult || result.OK == nil || !*result.OK {
		t.Fatalf("result = %+v", result)
	}
	if result.Value == nil || *result.Value != 1 || result.Text != "On" {
		t.Errorf("value = %+v", result)
	}
}

func TestRenderEnum(t *testing.T) {
	vc := VarConfig{Enums: []string{"Off", "On"}}
	if got := vc.render(1); got != "On" {
		t.Errorf("render(1) = %q", got)
	}
	if got := vc.render(5); got != "" {
		t.Errorf("render out of range = %q", got)
	}
}
