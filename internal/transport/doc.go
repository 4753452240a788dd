// Package transport defines the byte-level capability set the protocol
// engine requires from the BLE radio (connect, write, notifications,
// disconnect) plus two concrete carriers: a BLE-to-WebSocket gateway
// client and a UART passthrough module driver.
//
// The engine never touches the radio directly; scanning, connection
// establishment and characteristic discovery all live behind this
// interface, which keeps the protocol stack testable against an
// in-memory fake.
package transport
