package discovery

import (
	"fmt"
	"time"
)

// Bridge represents a discovered BLE-to-WebSocket bridge on the network
type Bridge struct {
	// Name is the bridge instance name (e.g., "lockwire-bridge-garage")
	Name string

	// Hostname is the mDNS hostname (e.g., "lockwire-bridge-garage.local")
	Hostname string

	// IP is the IPv4 address (e.g., "192.168.4.16")
	IP string

	// Port is the websocket port (typically 8555)
	Port int

	// Metadata contains additional mDNS TXT record data
	// Common fields: "version=1.2", "radios=2"
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("Lockwire Bridge %s (%s) at %s:%d", b.Name, b.Hostname, b.IP, b.Port)
}

// Endpoint returns the websocket base URL for the bridge
func (b *Bridge) Endpoint() string {
	return fmt.Sprintf("ws://%s:%d", b.IP, b.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
