// Package discovery advertises the server on the local network over mDNS
// and finds other servers doing the same.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_mydraw._tcp"

// Advertiser answers mDNS queries for one server instance until shut down.
type Advertiser struct {
	server  *mdns.Server
	service *mdns.MDNSService
}

// NewService builds the mDNS records for an instance listening on port.
// An empty host uses the OS hostname; nil ips uses the first up, non-loopback
// IPv4 address.
func NewService(instance, host string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	if host == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("get hostname: %w", err)
		}
		host = h
	}
	if !strings.HasSuffix(host, ".") {
		host += ".local."
	}
	if len(ips) == 0 {
		ips = []net.IP{firstIPv4()}
	}

	info := []string{"mydraw", fmt.Sprintf("port=%d", port)}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", host, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	return service, nil
}

// Advertise starts answering for instance on port.
func Advertise(instance string, port int) (*Advertiser, error) {
	service, err := NewService(instance, "", port, nil)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	slog.Info("advertising over mDNS", "instance", instance, "service", ServiceType, "port", port)
	return &Advertiser{server: server, service: service}, nil
}

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// Peer is a server found on the network.
type Peer struct {
	Instance string
	Addr     string
}

// Browse queries the network for timeout and reports every server found.
func Browse(timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Peer)
	go func() {
		var peers []Peer
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			peers = append(peers, Peer{
				Instance: e.Name,
				Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
			})
		}
		done <- peers
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	peers := <-done
	if err != nil {
		return peers, fmt.Errorf("mDNS query: %w", err)
	}
	return peers, nil
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
