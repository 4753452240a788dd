package discovery

import (
	"testing"
)

func TestBridge_String(t *testing.T) {
	bridge := &Bridge{
		Name:     "lockwire-bridge-garage",
		Hostname: "lockwire-bridge-garage.local",
		IP:       "192.168.4.16",
		Port:     8555,
	}

	expected := "Lockwire Bridge lockwire-bridge-garage (lockwire-bridge-garage.local) at 192.168.4.16:8555"
	if bridge.String() != expected {
		t.Errorf("Bridge.String() = %v, want %v", bridge.String(), expected)
	}
}

func TestBridge_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		bridge   *Bridge
		expected string
	}{
		{
			name: "standard port",
			bridge: &Bridge{
				IP:   "192.168.4.16",
				Port: 8555,
			},
			expected: "ws://192.168.4.16:8555",
		},
		{
			name: "custom port",
			bridge: &Bridge{
				IP:   "10.0.0.5",
				Port: 9000,
			},
			expected: "ws://10.0.0.5:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bridge.Endpoint(); got != tt.expected {
				t.Errorf("Bridge.Endpoint() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBridge_GetMetadata(t *testing.T) {
	bridge := &Bridge{
		Metadata: map[string]string{
			"version": "1.2",
			"radios":  "2",
		},
	}

	if got := bridge.GetMetadata("version"); got != "1.2" {
		t.Errorf("GetMetadata(version) = %v, want 1.2", got)
	}

	if got := bridge.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %v, want empty", got)
	}

	empty := &Bridge{}
	if got := empty.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata on nil map = %v, want empty", got)
	}
}
