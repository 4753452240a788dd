// Package command builds and validates the lock controller's fixed
// binary command set.
//
// Every business payload starts with a one-byte opcode followed by a
// fixed layout; all multi-byte integers are little-endian and timestamps
// travel as 6-byte packed decimal (BCD). Builders return a Command value
// carrying the payload together with its transport disposition (ack
// type, encryption, timeout); the session layer sends it verbatim.
//
// Responses are validated structurally (length, opcode echo, result
// byte) and decoded per opcode. Validation failures come back as a
// Response with Err set rather than as a Go error, so callers branch on
// the result the same way the vendor app does.
//
// Spontaneous device reports (UPLOAD_STATUS, UNLOCK_LOG) have their own
// parse functions; the session layer acks them with [opcode, 0x01].
package command
