package command

import (
	"fmt"
	"time"
)

// Response is the structured outcome of a command. Business validation
// failures come back as a Response with Success=false and Err set rather
// than as a Go error, so callers branch on the result.
type Response struct {
	Success bool
	Raw     []byte
	Err     string

	// Opcode-specific decoded payloads; only the one matching the
	// request is populated.
	DeviceInfo *DeviceInfo
}

func failure(raw []byte, format string, args ...interface{}) Response {
	return Response{Raw: raw, Err: fmt.Sprintf(format, args...)}
}

// Validate checks a response against the command that produced it:
// length, opcode echo and result byte, plus opcode-specific decoding.
func (c Command) Validate(raw []byte) Response {
	if len(raw) < 2 {
		return failure(raw, "response too short: %d bytes", len(raw))
	}
	if raw[0] != c.Opcode() {
		return failure(raw, "opcode echo 0x%02x does not match request 0x%02x", raw[0], c.Opcode())
	}

	switch c.Opcode() {
	case OpReadDeviceInfo:
		info, err := ParseDeviceInfo(raw)
		if err != nil {
			return failure(raw, "%v", err)
		}
		return Response{Success: true, Raw: raw, DeviceInfo: info}

	default:
		// Control commands share the uniform [opcode, result] ack.
		if len(raw) != 2 {
			return failure(raw, "ack must be 2 bytes, got %d", len(raw))
		}
		if raw[1] != ResultSuccess {
			return failure(raw, "device reported failure (result 0x%02x)", raw[1])
		}
		return Response{Success: true, Raw: raw}
	}
}

// CheckXorValidation reports whether response is the request body XORed
// byte-wise with 0x5A: same opcode, same length, every body byte
// transformed. The handshake uses this to prove both sides hold the
// shared secret.
func CheckXorValidation(request, response []byte) bool {
	if len(request) != len(response) || len(request) == 0 {
		return false
	}
	if request[0] != response[0] {
		return false
	}
	for i := 1; i < len(request); i++ {
		if response[i] != request[i]^XorMask {
			return false
		}
	}
	return true
}

// XorBody returns a copy of payload with every byte after the opcode
// XORed with 0x5A.
func XorBody(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	for i := 1; i < len(out); i++ {
		out[i] ^= XorMask
	}
	return out
}

// StatusReport is a spontaneous 7-byte UPLOAD_STATUS frame.
type StatusReport struct {
	State    LockState
	Battery  BatteryState
	LockID   string
	Engaged  bool // false when the lock ID field is all 0xFF
	IsLocked bool
}

// ParseStatusReport decodes a 7-byte status frame:
// [opcode][lockState][batteryState][lockId LE32].
func ParseStatusReport(data []byte) (*StatusReport, error) {
	if len(data) != 7 {
		return nil, fmt.Errorf("status report must be 7 bytes, got %d", len(data))
	}
	if data[0] != OpUploadStatus {
		return nil, fmt.Errorf("not a status report: opcode 0x%02x", data[0])
	}

	r := &StatusReport{
		State:   LockState(data[1]),
		Battery: BatteryState(data[2]),
	}
	r.LockID, r.Engaged = DecodeLockID(data[3:7])
	r.IsLocked = r.State.IsLocked()
	return r, nil
}

// String returns a log-friendly summary of the report
func (r *StatusReport) String() string {
	target := r.LockID
	if !r.Engaged {
		target = "none"
	}
	return fmt.Sprintf("StatusReport{state=%s, battery=%d%%, lock=%s}",
		r.State, r.Battery.Percent(), target)
}

// UnlockLog is a 13-byte unlock history record.
type UnlockLog struct {
	OperationType byte
	Success       bool
	LockID        string
	Timestamp     time.Time
}

// ParseUnlockLog decodes a 13-byte unlock log frame:
// [opcode][operationType][result][lockId LE32][timestamp BCD6].
func ParseUnlockLog(data []byte) (*UnlockLog, error) {
	if len(data) != 13 {
		return nil, fmt.Errorf("unlock log must be 13 bytes, got %d", len(data))
	}
	if data[0] != OpUnlockLog {
		return nil, fmt.Errorf("not an unlock log: opcode 0x%02x", data[0])
	}

	ts, err := DecodeBCDTime(data[7:13])
	if err != nil {
		return nil, fmt.Errorf("unlock log timestamp: %w", err)
	}

	id, _ := DecodeLockID(data[3:7])
	return &UnlockLog{
		OperationType: data[1],
		Success:       data[2] == ResultSuccess,
		LockID:        id,
		Timestamp:     ts,
	}, nil
}

// DeviceInfo is the decoded READ_DEVICE_INFO response.
type DeviceInfo struct {
	Firmware  string
	Battery   BatteryState
	LockCount uint16
}

// ParseDeviceInfo decodes an 8-byte device info response:
// [opcode][result][fwMajor][fwMinor][batteryState][lockCount LE16][reserved].
func ParseDeviceInfo(data []byte) (*DeviceInfo, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("device info must be 8 bytes, got %d", len(data))
	}
	if data[0] != OpReadDeviceInfo {
		return nil, fmt.Errorf("not a device info response: opcode 0x%02x", data[0])
	}
	if data[1] != ResultSuccess {
		return nil, fmt.Errorf("device info query failed (result 0x%02x)", data[1])
	}

	return &DeviceInfo{
		Firmware:  fmt.Sprintf("%d.%d", data[2], data[3]),
		Battery:   BatteryState(data[4]),
		LockCount: uint16(data[5]) | uint16(data[6])<<8,
	}, nil
}
