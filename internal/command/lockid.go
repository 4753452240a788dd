package command

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"
)

// LockIDSize is the wire size of a lock identifier.
const LockIDSize = 4

// noLockID is what status frames carry when no lock is engaged. Partial
// 0xFF patterns are not special; they decode as ordinary IDs
// (implementation-defined by the firmware, reproduced as observed).
var noLockID = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// EncodeLockID converts a decimal lock ID string to its 4-byte
// little-endian wire form.
func EncodeLockID(id string) ([]byte, error) {
	v, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "lock id %q", id)
	}
	out := make([]byte, LockIDSize)
	binary.LittleEndian.PutUint32(out, uint32(v))
	return out, nil
}

// DecodeLockID converts 4 wire bytes back to a decimal string. The second
// return value is false when the bytes are the all-0xFF "no lock engaged"
// marker.
func DecodeLockID(data []byte) (string, bool) {
	if len(data) != LockIDSize {
		return "", false
	}
	if bytes.Equal(data, noLockID) {
		return "", false
	}
	return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), 10), true
}
