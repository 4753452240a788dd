package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lockwire/lockwire/internal/command"
	"github.com/lockwire/lockwire/internal/logging"
	"github.com/lockwire/lockwire/internal/protocol"
)

// AuthTimeout covers the whole 4-step handshake from the CONNECT write
// to the step-4 key adoption.
const AuthTimeout = 10 * time.Second

// AuthState tracks handshake progress. The lock is the challenger: after
// the CONNECT echo, every step is a device-initiated message and the
// engine only replies.
type AuthState int

const (
	AuthStateIdle AuthState = iota
	AuthStateAwaitingXorEcho
	AuthStateAwaitingStep2
	AuthStateAwaitingStep3
	AuthStateAwaitingStep4
	AuthStateEstablished
	AuthStateFailed
)

// String returns a human-readable auth state name
func (s AuthState) String() string {
	switch s {
	case AuthStateIdle:
		return "idle"
	case AuthStateAwaitingXorEcho:
		return "awaiting-xor-echo"
	case AuthStateAwaitingStep2:
		return "awaiting-step2"
	case AuthStateAwaitingStep3:
		return "awaiting-step3"
	case AuthStateAwaitingStep4:
		return "awaiting-step4"
	case AuthStateEstablished:
		return "established"
	case AuthStateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// authenticate runs the handshake to completion or failure. It sends
// CONNECT, validates the XOR echo, then waits for the device to drive
// steps 2 through 4. No step is retried; any failure means the caller
// must reconnect from scratch.
func (s *Session) authenticate(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = AuthTimeout
	}
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	connect, err := command.NewConnect()
	if err != nil {
		return errors.Wrap(err, "authenticate")
	}
	connect.Timeout = timeout

	s.mu.Lock()
	s.authState = AuthStateAwaitingXorEcho
	s.connectBody = connect.Payload
	s.mu.Unlock()

	// The echo check and the AwaitingStep2 transition happen on the
	// receive path (handleConnectEcho) before the waiter resolves, so a
	// device that delivers its ack and the step-2 challenge back-to-back
	// is still handled in order.
	if _, err := s.sendRaw(ctx, connect); err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			return err
		}
		s.failAuth("connect: %v", err)
		return errors.Wrapf(ErrAuthenticationFailed, "connect: %v", err)
	}

	select {
	case err := <-s.authDone:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		s.failAuth("handshake timed out")
		return errors.Wrapf(ErrAuthenticationFailed, "handshake incomplete after %v", timeout)
	}
}

// handleConnectEcho consumes an Ack that answers the CONNECT of an
// in-flight handshake. The state moves to AwaitingStep2 before the
// waiter resolves. Returns false when no CONNECT echo is pending, in
// which case the caller routes the ack normally.
func (s *Session) handleConnectEcho(msg *protocol.AppMessage) bool {
	s.mu.Lock()
	if s.authState != AuthStateAwaitingXorEcho {
		s.mu.Unlock()
		return false
	}
	body := s.connectBody
	s.connectBody = nil
	s.mu.Unlock()

	if !command.CheckXorValidation(body, msg.Payload) {
		s.failAuth("connect echo rejected")
		s.rejectWaiter(msg.FrameIndex, errors.Wrap(ErrAuthenticationFailed, "connect echo rejected"))
		return true
	}

	s.setAuthState(AuthStateAwaitingStep2)
	s.resolve(msg.FrameIndex, msg.Payload)
	return true
}

// handleAuthStep processes one device-initiated handshake message.
// Step 2 is a challenge answered with the body XORed 0x5A; steps 3 and 4
// each carry a key fragment that is adopted as the session key and
// echoed back unchanged. Any opcode out of sequence fails the handshake.
func (s *Session) handleAuthStep(msg *protocol.AppMessage, encrypted bool) {
	op := msg.Payload[0]

	s.mu.Lock()
	state := s.authState
	s.mu.Unlock()

	logging.Debug("auth step",
		zap.String("device", s.deviceID),
		zap.String("state", state.String()),
		zap.Uint8("opcode", op),
	)

	var expect byte
	switch state {
	case AuthStateAwaitingStep2:
		expect = command.OpAuthStep2
	case AuthStateAwaitingStep3:
		expect = command.OpAuthStep3
	case AuthStateAwaitingStep4:
		expect = command.OpAuthStep4
	default:
		s.failAuthStep("auth opcode 0x%02x in state %s", op, state)
		return
	}
	if op != expect {
		s.failAuthStep("expected auth opcode 0x%02x, got 0x%02x", expect, op)
		return
	}

	switch op {
	case command.OpAuthStep2:
		s.reply(msg.FrameIndex, command.XorBody(msg.Payload), encrypted)
		s.setAuthState(AuthStateAwaitingStep3)

	case command.OpAuthStep3:
		s.adoptKey(msg.Payload[1:])
		s.reply(msg.FrameIndex, msg.Payload, encrypted)
		s.setAuthState(AuthStateAwaitingStep4)

	case command.OpAuthStep4:
		s.adoptKey(msg.Payload[1:])
		s.reply(msg.FrameIndex, msg.Payload, encrypted)
		s.setAuthState(AuthStateEstablished)
		s.signalAuth(nil)
	}
}

// adoptKey installs a handshake key fragment as the session key.
func (s *Session) adoptKey(fragment []byte) {
	key := protocol.NormalizeKey(fragment)
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
}

func (s *Session) setAuthState(state AuthState) {
	s.mu.Lock()
	s.authState = state
	s.mu.Unlock()
}

// failAuth marks the handshake failed from the connect path itself.
func (s *Session) failAuth(format string, args ...interface{}) {
	s.setAuthState(AuthStateFailed)
	logging.Warn("authentication failed",
		zap.String("device", s.deviceID),
		zap.String("reason", errors.Errorf(format, args...).Error()),
	)
}

// failAuthStep marks the handshake failed from the receive path and
// wakes the pending authenticate call.
func (s *Session) failAuthStep(format string, args ...interface{}) {
	s.failAuth(format, args...)
	s.signalAuth(errors.Wrapf(ErrAuthenticationFailed, format, args...))
}
