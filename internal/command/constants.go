package command

// Opcodes (leading application-payload byte)
// Verified against live captures from K30/K50 series key controllers.
const (
	OpConnect             = 0x01
	OpAuthStep2           = 0x02
	OpAuthStep3           = 0x03
	OpAuthStep4           = 0x04
	OpTimeSync            = 0x05
	OpReadDeviceInfo      = 0x06
	OpUploadStatus        = 0x07
	OpLockControl         = 0x08
	OpRecordUploadControl = 0x0A
	OpUnlockLog           = 0x0B
	OpTaskConfig          = 0x0C
	OpLockSegments        = 0x0D
)

// ResultSuccess is the result byte the device sets on every successful ack.
const ResultSuccess = 0x01

// XorMask is applied byte-wise during the authentication handshake.
const XorMask = 0x5A

// Lock control sub-operations
const (
	SubOpUnlock      = 0x00
	SubOpForceUnlock = 0x01
	SubOpLock        = 0x02
	SubOpForceLock   = 0x03
)

// Record upload control sub-operations
const (
	SubOpRecordStop     = 0x00
	SubOpRecordStart    = 0x01
	SubOpRecordComplete = 0x02
)

// LockState is the 8-value lock mechanism state reported in status frames.
type LockState byte

const (
	LockStateUnknown LockState = iota
	LockStateUnlocking
	LockStateUnlocked
	LockStateForceUnlocked
	LockStateLocking
	LockStateLocked
	LockStateForceLocked
	LockStateFault
)

// IsLocked reports whether the mechanism is engaged.
func (s LockState) IsLocked() bool {
	return s == LockStateLocked || s == LockStateForceLocked
}

// String returns a human-readable lock state name
func (s LockState) String() string {
	switch s {
	case LockStateUnknown:
		return "unknown"
	case LockStateUnlocking:
		return "unlocking"
	case LockStateUnlocked:
		return "unlocked"
	case LockStateForceUnlocked:
		return "force-unlocked"
	case LockStateLocking:
		return "locking"
	case LockStateLocked:
		return "locked"
	case LockStateForceLocked:
		return "force-locked"
	case LockStateFault:
		return "fault"
	default:
		return "invalid"
	}
}

// BatteryState is the 4-value coarse battery report.
type BatteryState byte

const (
	BatteryStateLow BatteryState = iota
	BatteryStateMedium
	BatteryStateHigh
	BatteryStateFull
)

// Percent maps the coarse state to the percentage bucket the vendor app
// displays: 20/60/100/100.
func (b BatteryState) Percent() int {
	switch b {
	case BatteryStateLow:
		return 20
	case BatteryStateMedium:
		return 60
	default:
		return 100
	}
}

// Authorization types for task configuration
const (
	AuthTypeLongTerm  = 0x00
	AuthTypeTemporary = 0x01
	AuthTypePeriodic  = 0x02
)

// Task config operation types
const (
	TaskOpAdd    = 0x00
	TaskOpUpdate = 0x01
	TaskOpDelete = 0x02
)

// OpcodeName returns a human-readable name for an opcode
func OpcodeName(op byte) string {
	switch op {
	case OpConnect:
		return "CONNECT"
	case OpAuthStep2:
		return "AUTH_STEP2"
	case OpAuthStep3:
		return "AUTH_STEP3"
	case OpAuthStep4:
		return "AUTH_STEP4"
	case OpTimeSync:
		return "TIME_SYNC"
	case OpReadDeviceInfo:
		return "READ_DEVICE_INFO"
	case OpUploadStatus:
		return "UPLOAD_STATUS"
	case OpLockControl:
		return "LOCK_CONTROL"
	case OpRecordUploadControl:
		return "RECORD_UPLOAD_CONTROL"
	case OpUnlockLog:
		return "UNLOCK_LOG"
	case OpTaskConfig:
		return "TASK_CONFIG"
	case OpLockSegments:
		return "LOCK_SEGMENTS"
	default:
		return "UNKNOWN"
	}
}
