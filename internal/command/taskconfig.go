package command

import (
	"time"

	"github.com/pkg/errors"
)

// validCountPlaceholder is what the firmware expects in the valid-count
// field; the real count is resolved device-side after segment push.
const validCountPlaceholder = 0xFFFF

// maxSlotsPerDay bounds periodic schedules. The firmware reads exactly
// two slots per weekday block; extra slots are silently dropped, matching
// the vendor app.
const maxSlotsPerDay = 2

// TimeSlot is one daily validity window, minute resolution.
type TimeSlot struct {
	StartHour   byte
	StartMinute byte
	EndHour     byte
	EndMinute   byte
}

// DaySchedule is one weekday block of a periodic authorization.
type DaySchedule struct {
	// Day is the weekday number the device uses (0 = Sunday).
	Day   byte
	Slots []TimeSlot
}

// TaskConfig describes an authorization task pushed to a key controller.
type TaskConfig struct {
	// Op is TaskOpAdd, TaskOpUpdate or TaskOpDelete.
	Op byte

	// SegmentCount is the number of lock-ID ranges that will follow in
	// LOCK_SEGMENTS packets.
	SegmentCount uint16

	// AuthType is AuthTypeLongTerm, AuthTypeTemporary or AuthTypePeriodic.
	AuthType byte

	// Start/End bound a temporary authorization (AuthTypeTemporary only).
	Start time.Time
	End   time.Time

	// Week holds up to 7 weekday blocks (AuthTypePeriodic only).
	Week []DaySchedule
}

// Encode serializes the task configuration payload:
//
//	[0x0C][op][segmentCount LE16][0xFFFF][authType][type-specific...]
//
// Temporary adds two 6-byte BCD timestamps; periodic adds exactly seven
// 9-byte weekday blocks (day + two 4-byte HH:MM windows, zero-filled when
// absent, truncated beyond two).
func (c TaskConfig) Encode() ([]byte, error) {
	payload := []byte{OpTaskConfig, c.Op}
	payload = putUint16(payload, c.SegmentCount)
	payload = putUint16(payload, validCountPlaceholder)
	payload = append(payload, c.AuthType)

	switch c.AuthType {
	case AuthTypeLongTerm:
		// no extra fields

	case AuthTypeTemporary:
		if !c.End.After(c.Start) {
			return nil, errors.New("temporary authorization end must follow start")
		}
		payload = append(payload, EncodeBCDTime(c.Start)...)
		payload = append(payload, EncodeBCDTime(c.End)...)

	case AuthTypePeriodic:
		if len(c.Week) > 7 {
			return nil, errors.Errorf("periodic schedule has %d weekday blocks, max 7", len(c.Week))
		}
		for i := 0; i < 7; i++ {
			block := make([]byte, 9)
			if i < len(c.Week) {
				d := c.Week[i]
				block[0] = d.Day
				slots := d.Slots
				if len(slots) > maxSlotsPerDay {
					slots = slots[:maxSlotsPerDay]
				}
				for j, s := range slots {
					off := 1 + j*4
					block[off] = s.StartHour
					block[off+1] = s.StartMinute
					block[off+2] = s.EndHour
					block[off+3] = s.EndMinute
				}
			}
			payload = append(payload, block...)
		}

	default:
		return nil, errors.Errorf("unknown auth type 0x%02x", c.AuthType)
	}

	return payload, nil
}
