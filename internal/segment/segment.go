// Package segment compresses bulk lock-ID authorization lists into
// contiguous ranges and packs them into size-bounded wire packets.
//
// Key controllers hold authorization for thousands of locks; transferring
// individual IDs over BLE would take minutes. ID lists are almost always
// dense (locks are provisioned sequentially), so runs of consecutive IDs
// collapse into [start,end] pairs that usually fit in a handful of
// packets.
package segment

import (
	"encoding/binary"
	"sort"
	"strconv"
)

// MaxRangesPerPacket bounds one wire packet: 25 ranges of 8 bytes is 200
// payload bytes, which fits the device's receive buffer.
const MaxRangesPerPacket = 25

// rangeSize is start LE32 + end LE32.
const rangeSize = 8

// Segment is an inclusive range of lock IDs.
type Segment struct {
	Start uint32
	End   uint32
}

// Contains reports whether id falls inside the segment.
func (s Segment) Contains(id uint32) bool {
	return id >= s.Start && id <= s.End
}

// Count returns how many IDs the segment spans.
func (s Segment) Count() int {
	return int(s.End-s.Start) + 1
}

// IDsToSegments parses decimal ID strings, discards anything that is not
// a positive integer, and merges runs of consecutive IDs into sorted,
// disjoint, maximal inclusive ranges.
func IDsToSegments(ids []string) []Segment {
	vals := make([]uint32, 0, len(ids))
	for _, id := range ids {
		v, err := strconv.ParseUint(id, 10, 32)
		if err != nil || v == 0 {
			continue
		}
		vals = append(vals, uint32(v))
	}
	if len(vals) == 0 {
		return nil
	}

	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })

	segs := []Segment{{Start: vals[0], End: vals[0]}}
	for _, v := range vals[1:] {
		last := &segs[len(segs)-1]
		switch {
		case v <= last.End:
			// duplicate
		case v == last.End+1:
			last.End = v
		default:
			segs = append(segs, Segment{Start: v, End: v})
		}
	}
	return segs
}

// SegmentsToPackets packs segments into wire packets of at most
// MaxRangesPerPacket ranges each: [opcode][rangeCount][start LE32, end
// LE32]... A trailing partial group becomes the final packet.
func SegmentsToPackets(opcode byte, segs []Segment) [][]byte {
	var packets [][]byte
	for off := 0; off < len(segs); off += MaxRangesPerPacket {
		n := len(segs) - off
		if n > MaxRangesPerPacket {
			n = MaxRangesPerPacket
		}

		pkt := make([]byte, 2, 2+n*rangeSize)
		pkt[0] = opcode
		pkt[1] = byte(n)
		for _, s := range segs[off : off+n] {
			var w [rangeSize]byte
			binary.LittleEndian.PutUint32(w[0:4], s.Start)
			binary.LittleEndian.PutUint32(w[4:8], s.End)
			pkt = append(pkt, w[:]...)
		}
		packets = append(packets, pkt)
	}
	return packets
}

// PacketsToSegments decodes packets produced by SegmentsToPackets,
// concatenating the ranges in order. Used by tests and by the bridge
// simulator to verify round trips.
func PacketsToSegments(packets [][]byte) []Segment {
	var segs []Segment
	for _, pkt := range packets {
		if len(pkt) < 2 {
			continue
		}
		n := int(pkt[1])
		for i := 0; i < n && 2+(i+1)*rangeSize <= len(pkt); i++ {
			off := 2 + i*rangeSize
			segs = append(segs, Segment{
				Start: binary.LittleEndian.Uint32(pkt[off : off+4]),
				End:   binary.LittleEndian.Uint32(pkt[off+4 : off+8]),
			})
		}
	}
	return segs
}
