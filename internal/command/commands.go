package command

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/lockwire/lockwire/internal/protocol"
	"github.com/lockwire/lockwire/internal/segment"
)

// DefaultTimeout bounds a command's wait for its matched response when
// the caller's session does not override it.
const DefaultTimeout = 5 * time.Second

// Command is a fully built business request ready for the session layer:
// the application payload (opcode first), how the transport should send
// it, and how long to wait for the device.
type Command struct {
	Name    string
	Payload []byte
	AckType protocol.AckType
	Timeout time.Duration

	// Encrypted selects transport-layer AES for the body. Handshake
	// traffic runs in the clear; everything after runs under the
	// session key.
	Encrypted bool

	// ReadClass marks commands that still await a business response via
	// the frame matcher even when sent without the ack flag.
	ReadClass bool
}

// Opcode returns the leading payload byte.
func (c Command) Opcode() byte {
	if len(c.Payload) == 0 {
		return 0
	}
	return c.Payload[0]
}

// NewConnect builds the handshake opener: opcode plus 4 random bytes the
// device must echo XORed with 0x5A.
func NewConnect() (Command, error) {
	payload := make([]byte, 5)
	payload[0] = OpConnect
	if _, err := rand.Read(payload[1:]); err != nil {
		return Command{}, errors.Wrap(err, "connect nonce")
	}
	return Command{
		Name:    "CONNECT",
		Payload: payload,
		AckType: protocol.AckTypeRequestWithAck,
		Timeout: DefaultTimeout,
	}, nil
}

// NewTimeSync builds a clock synchronization command carrying the
// timestamp as 6 BCD bytes.
func NewTimeSync(t time.Time) Command {
	payload := append([]byte{OpTimeSync}, EncodeBCDTime(t)...)
	return Command{
		Name:      "TIME_SYNC",
		Payload:   payload,
		AckType:   protocol.AckTypeRequestWithAck,
		Timeout:   DefaultTimeout,
		Encrypted: true,
		ReadClass: true,
	}
}

// NewReadDeviceInfo builds a device information query.
func NewReadDeviceInfo() Command {
	return Command{
		Name:      "READ_DEVICE_INFO",
		Payload:   []byte{OpReadDeviceInfo},
		AckType:   protocol.AckTypeRequestWithAck,
		Timeout:   DefaultTimeout,
		Encrypted: true,
		ReadClass: true,
	}
}

// NewUnlock builds an unlock command for the given lock ID.
func NewUnlock(lockID string, force bool) (Command, error) {
	subOp := byte(SubOpUnlock)
	if force {
		subOp = SubOpForceUnlock
	}
	return newLockControl("UNLOCK", lockID, subOp)
}

// NewLock builds a lock command for the given lock ID.
func NewLock(lockID string, force bool) (Command, error) {
	subOp := byte(SubOpLock)
	if force {
		subOp = SubOpForceLock
	}
	return newLockControl("LOCK", lockID, subOp)
}

func newLockControl(name, lockID string, subOp byte) (Command, error) {
	id, err := EncodeLockID(lockID)
	if err != nil {
		return Command{}, err
	}
	payload := append([]byte{OpLockControl, subOp}, id...)
	return Command{
		Name:      name,
		Payload:   payload,
		AckType:   protocol.AckTypeRequestWithAck,
		Timeout:   DefaultTimeout,
		Encrypted: true,
	}, nil
}

// NewRecordUploadControl builds a record-upload control command.
// action is one of SubOpRecordStop, SubOpRecordStart, SubOpRecordComplete.
func NewRecordUploadControl(action byte) (Command, error) {
	if action > SubOpRecordComplete {
		return Command{}, errors.Errorf("invalid record upload action 0x%02x", action)
	}
	return Command{
		Name:      "RECORD_UPLOAD_CONTROL",
		Payload:   []byte{OpRecordUploadControl, action},
		AckType:   protocol.AckTypeRequestWithAck,
		Timeout:   DefaultTimeout,
		Encrypted: true,
	}, nil
}

// NewTaskConfig builds a task configuration command.
func NewTaskConfig(cfg TaskConfig) (Command, error) {
	payload, err := cfg.Encode()
	if err != nil {
		return Command{}, err
	}
	return Command{
		Name:      "TASK_CONFIG",
		Payload:   payload,
		AckType:   protocol.AckTypeRequestWithAck,
		Timeout:   DefaultTimeout,
		Encrypted: true,
	}, nil
}

// NewLockSegments builds the sequence of segment-push commands for a bulk
// lock-ID authorization list. Large lists span several commands; each one
// carries at most segment.MaxRangesPerPacket ranges.
func NewLockSegments(ids []string) ([]Command, error) {
	segs := segment.IDsToSegments(ids)
	if len(segs) == 0 {
		return nil, errors.New("no valid lock ids to authorize")
	}

	packets := segment.SegmentsToPackets(OpLockSegments, segs)
	cmds := make([]Command, 0, len(packets))
	for _, p := range packets {
		cmds = append(cmds, Command{
			Name:      "LOCK_SEGMENTS",
			Payload:   p,
			AckType:   protocol.AckTypeRequestWithAck,
			Timeout:   DefaultTimeout,
			Encrypted: true,
		})
	}
	return cmds, nil
}

// SegmentCount returns how many ranges a list of IDs compresses to. Task
// configuration needs the count before the segments are pushed.
func SegmentCount(ids []string) uint16 {
	return uint16(len(segment.IDsToSegments(ids)))
}

// putUint16 appends a little-endian uint16.
func putUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}
