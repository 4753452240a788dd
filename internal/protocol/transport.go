package protocol

import (
	"github.com/pkg/errors"
)

// TransportVersion is the only envelope version the engine speaks.
const TransportVersion = 0x01

// AckType is the transport-layer acknowledgment mode carried in the low
// two bits of the control byte.
type AckType byte

const (
	AckTypeRequestWithoutAck AckType = 0x00
	AckTypeAck               AckType = 0x01
	AckTypeRequestWithAck    AckType = 0x02
	AckTypeNone              AckType = 0x03
)

// String returns a human-readable ack type name
func (a AckType) String() string {
	switch a {
	case AckTypeRequestWithoutAck:
		return "request-without-ack"
	case AckTypeAck:
		return "ack"
	case AckTypeRequestWithAck:
		return "request-with-ack"
	case AckTypeNone:
		return "none"
	default:
		return "invalid"
	}
}

// Control byte layout: 0xF4 base | ack bits | 0x08 when encrypted.
// The eight legal values are F4-F7 (plaintext) and FC-FF (encrypted).
const (
	controlBase      = 0xF4
	controlAckMask   = 0x03
	controlEncrypted = 0x08
)

var (
	ErrBadVersion = errors.New("protocol: unsupported transport version")
	ErrBadControl = errors.New("protocol: invalid control byte")
	ErrShortData  = errors.New("protocol: data too short for transport envelope")
)

// TransportOptions selects how PackTransport builds the envelope.
type TransportOptions struct {
	Version   byte // zero means TransportVersion
	AckType   AckType
	Encrypted bool
	Key       []byte // session key, required when Encrypted
}

// Envelope is a decoded transport envelope.
type Envelope struct {
	Version   byte
	AckType   AckType
	Encrypted bool
	Payload   []byte
}

// PackTransport builds the transport envelope around an application
// payload, encrypting the body when requested.
func PackTransport(payload []byte, opts TransportOptions) ([]byte, error) {
	version := opts.Version
	if version == 0 {
		version = TransportVersion
	}

	control := byte(controlBase) | byte(opts.AckType&controlAckMask)

	body := payload
	if opts.Encrypted {
		control |= controlEncrypted
		enc, err := EncryptECB(payload, opts.Key)
		if err != nil {
			return nil, errors.Wrap(err, "pack transport")
		}
		body = enc
	}

	out := make([]byte, 0, len(body)+2)
	out = append(out, version, control)
	out = append(out, body...)
	return out, nil
}

// UnpackTransport decodes a transport envelope, decrypting the body with
// key when the control byte flags encryption.
func UnpackTransport(data []byte, key []byte) (*Envelope, error) {
	if len(data) < 2 {
		return nil, ErrShortData
	}
	if data[0] != TransportVersion {
		return nil, errors.Wrapf(ErrBadVersion, "got 0x%02x", data[0])
	}

	control := data[1]
	if control&^byte(controlAckMask|controlEncrypted) != controlBase {
		return nil, errors.Wrapf(ErrBadControl, "got 0x%02x", control)
	}

	env := &Envelope{
		Version:   data[0],
		AckType:   AckType(control & controlAckMask),
		Encrypted: control&controlEncrypted != 0,
		Payload:   data[2:],
	}

	if env.Encrypted {
		plain, err := DecryptECB(env.Payload, key)
		if err != nil {
			return nil, errors.Wrap(err, "unpack transport")
		}
		env.Payload = plain
	}

	return env, nil
}
