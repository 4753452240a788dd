// Package protocol implements the three wire layers of the lockwire
// BLE lock protocol: physical framing, the transport envelope, and
// application framing.
//
// # Physical layer
//
// Every packet on the wire is wrapped in a checksummed frame:
//   - Header: 0xFE 0xFD
//   - Length: 2 bytes (little-endian), counts payload plus checksum
//   - Payload: variable length
//   - Checksum: 1 byte, sum of all preceding bytes mod 256
//
// BLE notifications deliver this stream in arbitrary chunks, so
// UnpackWithRemainder scans a buffer for complete frames and returns the
// unconsumed tail. A frame with a bad checksum is dropped and scanning
// resumes one byte past the candidate header, so a corrupt byte never
// desynchronizes more than it has to.
//
// # Transport layer
//
// Inside the physical payload sits a two-byte envelope: a version byte
// (always 1) and a control byte combining the acknowledgment type with an
// encryption flag. When the encryption flag is set, the body is
// AES-ECB/PKCS7 encrypted with the 16-byte session key.
//
// # Application layer
//
// The innermost layer is [frameIndex][length][payload]. The frame index
// (0-255, wrapping) correlates requests with responses and acks.
//
// # Usage
//
//	body, _ := protocol.PackTransport(appBytes, protocol.TransportOptions{
//	    AckType:   protocol.AckTypeRequestWithAck,
//	    Encrypted: true,
//	    Key:       sessionKey,
//	})
//	wire := protocol.PackFrame(body)
//
// On receive, feed raw notification bytes to UnpackWithRemainder and run
// each returned frame payload through UnpackTransport and UnpackApp.
package protocol
