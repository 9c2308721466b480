package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "ctrl-gw01.local.",
		Port:     8701,
		Text:     []string{"path=/pv", "srcvers=2"},
	}
	entry.Instance = "pvgw"
	entry.AddrIPv4 = []net.IP{net.ParseIP("10.0.4.16")}

	ep, ok := parseServiceEntry(entry)
	if !ok {
		t.Fatal("parseServiceEntry() rejected valid entry")
	}
	if ep.IP != "10.0.4.16" || ep.Port != 8701 {
		t.Errorf("endpoint = %+v", ep)
	}
	if got := ep.URL(); got != "ws://10.0.4.16:8701/pv" {
		t.Errorf("URL() = %q", got)
	}
}

func TestParseServiceEntryDefaults(t *testing.T) {
	entry := &zeroconf.ServiceEntry{HostName: "gw.local.", Port: 8701}
	entry.AddrIPv4 = []net.IP{net.ParseIP("10.0.4.17")}

	ep, ok := parseServiceEntry(entry)
	if !ok {
		t.Fatal("parseServiceEntry() rejected valid entry")
	}
	if got := ep.URL(); got != "ws://10.0.4.17:8701/ws" {
		t.Errorf("URL() = %q, want default /ws path", got)
	}
}

func TestParseServiceEntryRejectsAddressless(t *testing.T) {
	entry := &zeroconf.ServiceEntry{HostName: "gw.local.", Port: 8701}

	if _, ok := parseServiceEntry(entry); ok {
		t.Fatal("parseServiceEntry() accepted an entry with no address")
	}
}
