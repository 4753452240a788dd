package protocol

// AppMessage is a decoded application-layer frame: a wrapping sequence
// number plus the business payload (opcode and arguments).
type AppMessage struct {
	FrameIndex byte
	Payload    []byte
}

// PackApp builds an application frame: [frameIndex][len(payload)][payload].
func PackApp(payload []byte, frameIndex byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, frameIndex, byte(len(payload)))
	out = append(out, payload...)
	return out
}

// UnpackApp decodes an application frame. The declared length byte must
// match the actual payload length exactly; anything else returns nil,
// matching the device firmware which drops malformed frames outright.
func UnpackApp(data []byte) *AppMessage {
	if len(data) < 2 {
		return nil
	}
	if int(data[1]) != len(data)-2 {
		return nil
	}
	return &AppMessage{
		FrameIndex: data[0],
		Payload:    data[2:],
	}
}
