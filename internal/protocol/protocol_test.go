package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeOmitsAbsentFields(t *testing.T) {
	data, err := Encode(NewMonitor(3, "tec0:temp"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got := string(data)
	if got != `{"op":"monitor","sub":3,"pv":"tec0:temp"}` {
		t.Errorf("Encode() = %s", got)
	}
	if strings.Contains(got, "value") || strings.Contains(got, "conn") {
		t.Errorf("absent optional fields serialized: %s", got)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	prec := 2
	orig := NewUpdate(7, 23.5, "23.5").WithMeta(&prec, "degC", nil)

	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if msg.Op != OpUpdate || msg.Sub != 7 {
		t.Errorf("envelope = %+v", msg)
	}
	if msg.Value == nil || *msg.Value != 23.5 || msg.Text != "23.5" {
		t.Errorf("value = %+v", msg)
	}
	if msg.Precision == nil || *msg.Precision != 2 || msg.Units != "degC" {
		t.Errorf("meta = %+v", msg)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode() accepted malformed input")
	}
	if _, err := Decode([]byte(`{"sub":1}`)); err == nil {
		t.Error("Decode() accepted a message without op")
	}
}

func TestNewResult(t *testing.T) {
	ok := NewResult(5, nil)
	if ok.OK == nil || !*ok.OK || ok.Error != "" {
		t.Errorf("success result = %+v", ok)
	}

	failed := NewResult(5, errors.New("no such pv"))
	if failed.OK == nil || *failed.OK || failed.Error != "no such pv" {
		t.Errorf("failure result = %+v", failed)
	}
}
