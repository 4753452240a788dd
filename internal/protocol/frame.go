package protocol

import (
	"encoding/binary"
)

// Physical frame constants
const (
	HeaderByte0 = 0xFE
	HeaderByte1 = 0xFD

	// frameOverhead is header (2) + length (2) + checksum (1)
	frameOverhead = 5

	// headerSize is the fixed prefix before the payload
	headerSize = 4
)

// PackFrame wraps a payload in a physical frame.
//
// Layout: [0xFE 0xFD][len_lo len_hi][payload...][checksum] where the
// length field counts the payload plus the trailing checksum byte and the
// checksum is the sum of every preceding byte mod 256.
func PackFrame(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+frameOverhead)
	frame = append(frame, HeaderByte0, HeaderByte1)

	length := make([]byte, 2)
	binary.LittleEndian.PutUint16(length, uint16(len(payload)+1))
	frame = append(frame, length...)
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame))

	return frame
}

// Checksum sums the given bytes mod 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// UnpackWithRemainder scans buf for complete physical frames and returns
// every payload found plus the unconsumed tail.
//
// The scan is tolerant of leading garbage and fragmentation: bytes before
// a header are skipped, a frame whose declared length extends past the
// buffer leaves the candidate (and everything after it) in the remainder
// for the next delivery, and a checksum mismatch advances the scan by a
// single byte so a corrupted frame cannot swallow a good one behind it.
//
// Feeding chunks incrementally (carrying the remainder forward) yields the
// same frame set as feeding the concatenation in one call.
func UnpackWithRemainder(buf []byte) ([][]byte, []byte) {
	var frames [][]byte

	i := 0
	for {
		// Find the next header.
		start := -1
		for j := i; j+1 < len(buf); j++ {
			if buf[j] == HeaderByte0 && buf[j+1] == HeaderByte1 {
				start = j
				break
			}
		}
		if start < 0 {
			// No header in sight. Keep the last byte in case it is the
			// first half of a header split across chunks.
			if len(buf) > 0 && buf[len(buf)-1] == HeaderByte0 {
				return frames, buf[len(buf)-1:]
			}
			return frames, nil
		}

		// Need the full 4-byte prefix to know the frame size.
		if start+headerSize > len(buf) {
			return frames, buf[start:]
		}

		length := int(binary.LittleEndian.Uint16(buf[start+2 : start+4]))
		total := length + headerSize // header + length field + payload + checksum
		if start+total > len(buf) {
			// Incomplete; wait for more data.
			return frames, buf[start:]
		}

		body := buf[start : start+total]
		if Checksum(body[:total-1]) != body[total-1] {
			// Corrupt candidate: resynchronize one byte past the header.
			i = start + 1
			continue
		}

		frames = append(frames, body[headerSize:total-1])
		i = start + total
		if i >= len(buf) {
			return frames, nil
		}
	}
}
