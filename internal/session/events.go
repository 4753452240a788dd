package session

import (
	"github.com/lockwire/lockwire/internal/command"
)

// Event is the closed set of things the engine reports to its consumer.
// Emission never blocks the protocol path: a full subscriber channel
// drops the event with a warning instead of stalling a receive loop.
type Event interface {
	isEvent()
}

// Connected fires once authentication completes and the session is
// usable for business commands.
type Connected struct {
	DeviceID string
}

// Disconnected fires when a session is destroyed. Reason is nil for a
// voluntary disconnect.
type Disconnected struct {
	DeviceID string
	Reason   error
}

// LockStatus carries a spontaneous UPLOAD_STATUS report.
type LockStatus struct {
	DeviceID string
	Report   *command.StatusReport
}

// DeviceInfoRead carries a decoded READ_DEVICE_INFO response.
type DeviceInfoRead struct {
	DeviceID string
	Info     *command.DeviceInfo
}

// UnlockLogged carries one unlock history record uploaded by the device.
type UnlockLogged struct {
	DeviceID string
	Log      *command.UnlockLog
}

// RecordUploadChanged fires when a record-upload control command is
// acknowledged. Action is the sub-operation that was applied.
type RecordUploadChanged struct {
	DeviceID string
	Action   byte
}

// DeviceReport carries any device-initiated frame, decoded or not, for
// consumers that want the raw traffic.
type DeviceReport struct {
	DeviceID string
	Opcode   byte
	Payload  []byte
}

// EngineError surfaces asynchronous failures that have no caller to
// return to (dispatch problems, dropped subscribers).
type EngineError struct {
	DeviceID string
	Err      error
}

// DeviceFound fires for each device sighted during a scan window.
type DeviceFound struct {
	DeviceID string
	RSSI     int
}

// ScanCompleted fires when the scan window elapses.
type ScanCompleted struct {
	Found int
}

// DataReceived fires for every raw notification chunk, before any
// decoding. Length only; the bytes stay in the receive buffer.
type DataReceived struct {
	DeviceID string
	Length   int
}

func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}
func (LockStatus) isEvent()          {}
func (DeviceInfoRead) isEvent()      {}
func (UnlockLogged) isEvent()        {}
func (RecordUploadChanged) isEvent() {}
func (DeviceReport) isEvent()        {}
func (EngineError) isEvent()         {}
func (DeviceFound) isEvent()         {}
func (ScanCompleted) isEvent()       {}
func (DataReceived) isEvent()        {}
