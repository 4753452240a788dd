package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name: "valid bridge with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-garage"},
				HostName:      "lockwire-bridge-garage.local.",
				Port:          8555,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"version=1.2", "radios=2"},
			},
			wantNil:  false,
			wantName: "lockwire-bridge-garage",
			wantIP:   "192.168.4.16",
			wantPort: 8555,
		},
		{
			name: "bridge with custom port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-yard-2"},
				HostName:      "yard.local",
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil:  false,
			wantName: "lockwire-bridge-yard-2",
			wantIP:   "10.0.0.5",
			wantPort: 9000,
		},
		{
			name: "bridge with no port specified (should default to 8555)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-cellar"},
				HostName:      "cellar.local",
				Port:          0,
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantNil:  false,
			wantName: "lockwire-bridge-cellar",
			wantIP:   "172.16.0.1",
			wantPort: 8555,
		},
		{
			name: "non-lockwire service (wrong instance pattern)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "someprinter"},
				HostName:      "someprinter.local",
				Port:          631,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "empty instance name",
			entry: &zeroconf.ServiceEntry{
				HostName: "anon.local",
				Port:     8555,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-garage"},
				HostName:      "lockwire-bridge-garage.local",
				Port:          8555,
				AddrIPv4:      []net.IP{},
				AddrIPv6:      []net.IP{},
			},
			wantNil: true,
		},
		{
			name: "IPv6 only bridge",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-attic"},
				HostName:      "attic.local",
				Port:          8555,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantNil:  false,
			wantName: "lockwire-bridge-attic",
			wantIP:   "fe80::1",
			wantPort: 8555,
		},
		{
			name: "bridge with both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-hall"},
				HostName:      "hall.local",
				Port:          8555,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantNil:  false,
			wantName: "lockwire-bridge-hall",
			wantIP:   "192.168.1.50",
			wantPort: 8555,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if bridge != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", bridge)
				}
				return
			}

			if bridge == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil bridge")
			}

			if bridge.Name != tt.wantName {
				t.Errorf("bridge.Name = %v, want %v", bridge.Name, tt.wantName)
			}

			if bridge.IP != tt.wantIP {
				t.Errorf("bridge.IP = %v, want %v", bridge.IP, tt.wantIP)
			}

			if bridge.Port != tt.wantPort {
				t.Errorf("bridge.Port = %v, want %v", bridge.Port, tt.wantPort)
			}

			if bridge.Hostname != tt.entry.HostName {
				t.Errorf("bridge.Hostname = %v, want %v", bridge.Hostname, tt.entry.HostName)
			}

			// Check that DiscoveredAt is recent (within last second)
			if time.Since(bridge.DiscoveredAt) > time.Second {
				t.Errorf("bridge.DiscoveredAt is not recent: %v", bridge.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "lockwire-bridge-garage"},
		HostName:      "lockwire-bridge-garage.local",
		Port:          8555,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"version=1.2", "radios=2", "flag", "fw=20260812"},
	}

	bridge := scanner.parseServiceEntry(entry)
	if bridge == nil {
		t.Fatal("parseServiceEntry() = nil, want bridge")
	}

	expectedMetadata := map[string]string{
		"version": "1.2",
		"radios":  "2",
		"flag":    "", // Key without value
		"fw":      "20260812",
	}

	if len(bridge.Metadata) != len(expectedMetadata) {
		t.Errorf("bridge.Metadata has %d entries, want %d", len(bridge.Metadata), len(expectedMetadata))
	}

	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := bridge.Metadata[key]; !ok {
			t.Errorf("bridge.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("bridge.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestNamePattern(t *testing.T) {
	tests := []struct {
		instance    string
		shouldMatch bool
		suffix      string
	}{
		{"lockwire-bridge-garage", true, "garage"},
		{"lockwire-bridge-yard-2", true, "yard-2"},
		{"lockwire-bridge-A1", true, "A1"},
		{"Lockwire-bridge-garage", false, ""}, // uppercase 'L'
		{"lockwire-bridge-", false, ""},       // no suffix
		{"lockwire-garage", false, ""},        // wrong prefix
		{"someprinter", false, ""},            // unrelated
		{"", false, ""},                       // empty
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			matches := namePattern.FindStringSubmatch(tt.instance)

			if tt.shouldMatch {
				if matches == nil || len(matches) < 2 {
					t.Errorf("namePattern did not match %q", tt.instance)
				} else if matches[1] != tt.suffix {
					t.Errorf("namePattern matched %q with suffix %q, want %q", tt.instance, matches[1], tt.suffix)
				}
			} else {
				if matches != nil {
					t.Errorf("namePattern matched %q, want no match", tt.instance)
				}
			}
		})
	}
}
