// Package discovery locates a PV gateway on the local network via mDNS.
//
// Gateways advertise themselves as "_pvgw._tcp" services. Discovery is a
// convenience for workstations on the controls subnet; an explicitly
// configured endpoint always wins over discovery.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type advertised by PV gateways.
	ServiceType = "_pvgw._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultLookupTimeout is how long to browse before giving up.
	DefaultLookupTimeout = 5 * time.Second
)

// Endpoint describes a discovered gateway.
type Endpoint struct {
	Instance string
	Host     string
	IP       string
	Port     int
	Path     string // from the "path" TXT record, default "/ws"
}

// URL returns the websocket URL for the endpoint.
func (e Endpoint) URL() string {
	path := e.Path
	if path == "" {
		path = "/ws"
	}
	return fmt.Sprintf("ws://%s:%d%s", e.IP, e.Port, path)
}

func (e Endpoint) String() string {
	return fmt.Sprintf("PV gateway %q at %s:%d", e.Instance, e.IP, e.Port)
}

// Lookup browses for PV gateway services and returns the first usable
// entry. It fails when no gateway answers within the timeout.
func Lookup(ctx context.Context, timeout time.Duration) (Endpoint, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan Endpoint, 1)

	go func() {
		for entry := range entries {
			if ep, ok := parseServiceEntry(entry); ok {
				select {
				case found <- ep:
					cancel()
				default:
				}
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return Endpoint{}, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case ep := <-found:
		return ep, nil
	case <-ctx.Done():
		select {
		case ep := <-found:
			return ep, nil
		default:
		}
		return Endpoint{}, fmt.Errorf("no PV gateway found within %s", timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to an Endpoint.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return Endpoint{}, false
	}

	ep := Endpoint{
		Instance: entry.Instance,
		Host:     entry.HostName,
		IP:       ip,
		Port:     entry.Port,
	}

	// TXT records are "key=value" pairs; only "path" matters here.
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 && parts[0] == "path" {
			ep.Path = parts[1]
		}
	}

	return ep, true
}
