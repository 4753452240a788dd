// Package discovery provides mDNS-based discovery of lockwire bridges.
//
// A bridge is a small gateway exposing one or more BLE radios over a
// websocket API. Bridges advertise themselves on the local network using
// the "_lockwire._tcp" service type; this package browses for those
// advertisements so the CLI can find a bridge without configuration.
//
// # Discovery Process
//
//  1. Broadcasts mDNS queries on the local network
//  2. Listens for service advertisements from bridges
//  3. Filters responses by the lockwire instance-name pattern
//  4. Collects bridge information (name, IP, port, TXT metadata)
//  5. Returns the list after the timeout period
//
// # Usage Example
//
//	bridges, err := discovery.ScanForBridges(10 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, b := range bridges {
//	    fmt.Printf("Found: %s at %s\n", b.Name, b.Endpoint())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions can run
// simultaneously without interference.
package discovery
