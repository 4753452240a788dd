package session

import "github.com/pkg/errors"

var (
	// ErrConnectionClosed rejects every waiter pending on a session when
	// the link goes away, voluntarily or device-initiated.
	ErrConnectionClosed = errors.New("session: connection closed")

	// ErrCommandTimeout means the device never produced the matched
	// response within the command's window.
	ErrCommandTimeout = errors.New("session: command timed out")

	// ErrAuthenticationFailed covers every way the handshake dies: bad
	// XOR echo, a step arriving out of order, or the 10s overall timer.
	ErrAuthenticationFailed = errors.New("session: authentication failed")

	// ErrNotEstablished means a business command was attempted before the
	// handshake completed.
	ErrNotEstablished = errors.New("session: authentication not complete")

	// ErrDeviceNotConnected means no session exists for the device.
	ErrDeviceNotConnected = errors.New("session: device not connected")

	// ErrWaiterExists means the frame index already has an outstanding
	// response waiter. Overlapping sends on one device are the caller's
	// responsibility to avoid.
	ErrWaiterExists = errors.New("session: frame index already awaited")

	// ErrScanUnsupported means the configured transport cannot discover
	// devices.
	ErrScanUnsupported = errors.New("session: transport does not support scanning")
)
