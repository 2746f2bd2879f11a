package discovery

import (
	"net"
	"testing"
)

func TestNewService(t *testing.T) {
	svc, err := NewService("studio", "drawhost", 8080, []net.IP{net.IPv4(192, 168, 1, 20)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.Instance != "studio" || svc.Service != ServiceType || svc.Port != 8080 {
		t.Fatalf("service = %+v", svc)
	}
	if svc.HostName != "drawhost.local." {
		t.Fatalf("host = %q", svc.HostName)
	}
	if len(svc.TXT) != 2 || svc.TXT[1] != "port=8080" {
		t.Fatalf("txt = %v", svc.TXT)
	}
}

func TestNewServiceKeepsQualifiedHost(t *testing.T) {
	svc, err := NewService("studio", "draw.example.", 9000, []net.IP{net.IPv4(10, 0, 0, 1)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.HostName != "draw.example." {
		t.Fatalf("host = %q", svc.HostName)
	}
}
