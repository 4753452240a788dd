// Package config provides user configuration management for lockwire.
//
// This package manages a YAML-based configuration file that stores
// per-device metadata for key controllers (nicknames, pairing secrets,
// timeout overrides) plus application preferences such as the bridge
// endpoint. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/lockwire/config.yaml or $HOME/.config/lockwire/config.yaml
//   - macOS: $HOME/.config/lockwire/config.yaml
//   - Windows: %LOCALAPPDATA%\lockwire\config.yaml
//
// # Security
//
// The file holds device pairing secrets, so it is written with 0600
// permissions inside a 0700 directory. Treat it like an SSH key file.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetDeviceNickname("AA:BB:CC:DD:EE:FF", "Front Gate Key")
//	registry.SetDeviceSecret("AA:BB:CC:DD:EE:FF", secret)
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
