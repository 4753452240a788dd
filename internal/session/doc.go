// Package session is the top of the lockwire protocol stack. An Engine
// owns one Session per connected key controller, runs the four-step
// authentication handshake automatically on connect, correlates
// outbound requests to inbound responses by frame index, answers
// device-initiated reports, and publishes everything interesting on a
// non-blocking event stream.
package session
