package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// The engine treats the BLE radio as an external collaborator reachable
// through this capability set. Implementations deliver notification
// bytes exactly as the link produces them: arbitrarily chunked, with no
// frame alignment guarantees.

// Errors every implementation maps its failures onto.
var (
	ErrUnavailable           = errors.New("transport: unavailable")
	ErrNotInitialized        = errors.New("transport: not initialized")
	ErrDeviceNotConnected    = errors.New("transport: device not connected")
	ErrCharacteristicMissing = errors.New("transport: service or characteristic missing")
	ErrConnectFailed         = errors.New("transport: connect failed")
)

// NotificationFunc receives raw notification bytes for a device.
type NotificationFunc func(deviceID string, data []byte)

// Transport is the byte-level capability set the protocol engine needs.
type Transport interface {
	// Connect establishes the link to a device and discovers the
	// write/notify characteristics. It must be called before Write.
	Connect(ctx context.Context, deviceID string) error

	// Write sends raw bytes to the device's write characteristic.
	Write(deviceID string, data []byte) error

	// Disconnect tears the link down. Idempotent.
	Disconnect(deviceID string) error

	// OnNotification registers the single notification sink. Must be
	// set before Connect.
	OnNotification(fn NotificationFunc)
}

// FoundFunc receives devices discovered during a scan window.
type FoundFunc func(deviceID string, rssi int)

// Scanner is implemented by transports that can discover devices. The
// scan runs for the fixed window and then returns.
type Scanner interface {
	Scan(ctx context.Context, window time.Duration, found FoundFunc) error
}
