package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !contains(configDir, "lockwire") {
		t.Errorf("GetConfigDir() = %v, should contain 'lockwire'", configDir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !contains(configDir, "AppData") && !contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigDirHonorsXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies to Unix-like systems")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg-test", "lockwire") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg-test/lockwire", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	if reg.Preferences.AutoDiscover != true {
		t.Error("NewRegistry().Preferences.AutoDiscover should be true by default")
	}

	if reg.Preferences.DiscoverTimeout != 10 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 10", reg.Preferences.DiscoverTimeout)
	}

	if reg.Preferences.TimeoutSeconds != 5 {
		t.Errorf("NewRegistry().Preferences.TimeoutSeconds = %v, want 5", reg.Preferences.TimeoutSeconds)
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	// First call should create device
	device1 := reg.EnsureDevice("AA:BB:CC:DD:EE:FF")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	// Second call should return same device
	device2 := reg.EnsureDevice("AA:BB:CC:DD:EE:FF")
	if device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same address")
	}

	// Different address should create new device
	device3 := reg.EnsureDevice("11:22:33:44:55:66")
	if device1 == device3 {
		t.Error("EnsureDevice() should create new instance for different address")
	}
}

func TestRegistryUpdateDeviceLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdateDeviceLastSeen("AA:BB:CC:DD:EE:FF", -63)
	after := time.Now()

	device := reg.GetDevice("AA:BB:CC:DD:EE:FF")
	if device == nil {
		t.Fatal("Device should exist after UpdateDeviceLastSeen()")
	}

	if device.LastRSSI != -63 {
		t.Errorf("LastRSSI = %v, want -63", device.LastRSSI)
	}

	if device.LastSeen.Before(before) || device.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", device.LastSeen, before, after)
	}
}

func TestRegistrySetDeviceNickname(t *testing.T) {
	reg := NewRegistry()

	reg.SetDeviceNickname("AA:BB:CC:DD:EE:FF", "Front Gate Key")

	device := reg.GetDevice("AA:BB:CC:DD:EE:FF")
	if device == nil {
		t.Fatal("Device should exist after SetDeviceNickname()")
	}

	if device.Nickname != "Front Gate Key" {
		t.Errorf("Nickname = %v, want 'Front Gate Key'", device.Nickname)
	}
}

func TestRegistrySetDeviceSecret(t *testing.T) {
	reg := NewRegistry()

	reg.SetDeviceSecret("AA:BB:CC:DD:EE:FF", "pairing-secret")

	device := reg.GetDevice("AA:BB:CC:DD:EE:FF")
	if device == nil || device.SecretKey != "pairing-secret" {
		t.Fatalf("device = %+v, want stored secret", device)
	}
}

func TestRegistryCommandTimeout(t *testing.T) {
	reg := NewRegistry()

	if got := reg.CommandTimeout("unknown"); got != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", got)
	}

	reg.Preferences.TimeoutSeconds = 8
	if got := reg.CommandTimeout("unknown"); got != 8*time.Second {
		t.Errorf("preference timeout = %v, want 8s", got)
	}

	reg.EnsureDevice("AA:BB:CC:DD:EE:FF").TimeoutSeconds = 3
	if got := reg.CommandTimeout("AA:BB:CC:DD:EE:FF"); got != 3*time.Second {
		t.Errorf("per-device timeout = %v, want 3s", got)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "lockwire-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	testConfigPath := filepath.Join(tmpDir, "config.yaml")

	reg := NewRegistry()
	reg.SetDeviceNickname("AA:BB:CC:DD:EE:FF", "Test Device")
	reg.SetDeviceSecret("AA:BB:CC:DD:EE:FF", "pairing-secret")
	reg.EnsureDevice("AA:BB:CC:DD:EE:FF").TimeoutSeconds = 7
	reg.Preferences.Bridge = "ws://bridge.local:8555"

	data, err := yaml.Marshal(reg)
	if err != nil {
		t.Fatalf("Failed to marshal registry: %v", err)
	}

	if err := os.WriteFile(testConfigPath, data, 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	raw, err := os.ReadFile(testConfigPath)
	if err != nil {
		t.Fatalf("Failed to read test config: %v", err)
	}
	var loaded Registry
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	device := loaded.GetDevice("AA:BB:CC:DD:EE:FF")
	if device == nil {
		t.Fatal("Device should exist in loaded registry")
	}

	if device.Nickname != "Test Device" {
		t.Errorf("Loaded nickname = %v, want 'Test Device'", device.Nickname)
	}
	if device.SecretKey != "pairing-secret" {
		t.Errorf("Loaded secret = %v, want 'pairing-secret'", device.SecretKey)
	}
	if device.TimeoutSeconds != 7 {
		t.Errorf("Loaded timeout = %v, want 7", device.TimeoutSeconds)
	}
	if loaded.Preferences.Bridge != "ws://bridge.local:8555" {
		t.Errorf("Loaded bridge = %v", loaded.Preferences.Bridge)
	}
}

// Helper functions

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && (s[:len(substr)] == substr || contains(s[1:], substr))))
}

// Benchmark tests

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("AA:BB:CC:DD:EE:FF")
	}
}
