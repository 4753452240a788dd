package command

import (
	"time"

	"github.com/pkg/errors"
)

// BCDTimeSize is the wire size of a packed-decimal timestamp:
// year (two digits), month, day, hour, minute, second.
const BCDTimeSize = 6

// EncodeBCDTime packs a timestamp into 6 BCD bytes.
func EncodeBCDTime(t time.Time) []byte {
	return []byte{
		toBCD(t.Year() % 100),
		toBCD(int(t.Month())),
		toBCD(t.Day()),
		toBCD(t.Hour()),
		toBCD(t.Minute()),
		toBCD(t.Second()),
	}
}

// DecodeBCDTime unpacks a 6-byte BCD timestamp. Two-digit years map into
// the 2000s, which is how the device firmware interprets them.
func DecodeBCDTime(data []byte) (time.Time, error) {
	if len(data) != BCDTimeSize {
		return time.Time{}, errors.Errorf("bcd timestamp must be %d bytes, got %d", BCDTimeSize, len(data))
	}

	vals := make([]int, BCDTimeSize)
	for i, b := range data {
		v, err := fromBCD(b)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "bcd byte %d", i)
		}
		vals[i] = v
	}

	return time.Date(2000+vals[0], time.Month(vals[1]), vals[2],
		vals[3], vals[4], vals[5], 0, time.Local), nil
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func fromBCD(b byte) (int, error) {
	hi, lo := int(b>>4), int(b&0x0F)
	if hi > 9 || lo > 9 {
		return 0, errors.Errorf("0x%02x is not packed decimal", b)
	}
	return hi*10 + lo, nil
}
