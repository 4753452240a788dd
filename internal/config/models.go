package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for key controllers and application
// preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single key controller.
// This is keyed by the device's BLE address in the Registry.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
	LastRSSI int       `yaml:"last_rssi,omitempty"` // Signal strength at last sighting

	// SecretKey is the pre-shared pairing secret used to seed the
	// session key before the handshake rotates it. It is provisioned
	// once per device and stored with user-only file permissions.
	SecretKey string `yaml:"secret_key,omitempty"`

	// TimeoutSeconds overrides the default command timeout for this
	// device. Zero means use the preference-level default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`         // Enable automatic mDNS bridge discovery on startup
	DiscoverTimeout int    `yaml:"discover_timeout"`      // mDNS discovery timeout in seconds
	ScanWindow      int    `yaml:"scan_window"`           // BLE scan window in seconds
	TimeoutSeconds  int    `yaml:"timeout_seconds"`       // Default command timeout in seconds
	Bridge          string `yaml:"bridge,omitempty"`      // BLE bridge websocket endpoint, e.g. ws://host:8555
	SerialPort      string `yaml:"serial_port,omitempty"` // UART passthrough port, used when no bridge is set
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 10,
		ScanWindow:      5,
		TimeoutSeconds:  5,
	}
}

// GetDevice retrieves device metadata by address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(address string) *Device {
	return r.Devices[address]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(address string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[address]; exists {
		return device
	}

	device := &Device{}
	r.Devices[address] = device
	return device
}

// UpdateDeviceLastSeen records a sighting of the device.
func (r *Registry) UpdateDeviceLastSeen(address string, rssi int) {
	device := r.EnsureDevice(address)
	device.LastSeen = time.Now()
	device.LastRSSI = rssi
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(address, nickname string) {
	device := r.EnsureDevice(address)
	device.Nickname = nickname
}

// SetDeviceSecret stores the pairing secret for a device.
func (r *Registry) SetDeviceSecret(address, secret string) {
	device := r.EnsureDevice(address)
	device.SecretKey = secret
}

// CommandTimeout resolves the effective command timeout for a device:
// per-device override first, then the global preference, then 5s.
func (r *Registry) CommandTimeout(address string) time.Duration {
	if d := r.GetDevice(address); d != nil && d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	if r.Preferences != nil && r.Preferences.TimeoutSeconds > 0 {
		return time.Duration(r.Preferences.TimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
