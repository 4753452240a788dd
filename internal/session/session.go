package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lockwire/lockwire/internal/command"
	"github.com/lockwire/lockwire/internal/logging"
	"github.com/lockwire/lockwire/internal/protocol"
	"github.com/lockwire/lockwire/internal/transport"
)

// IdleFlushInterval bounds how long partial trailing data may sit in the
// receive buffer before a forced decode attempt. It is a latency bound,
// not a failure.
const IdleFlushInterval = 200 * time.Millisecond

// waitResult is what a frame waiter receives: the application payload of
// the matched inbound message, or the reason it will never arrive.
type waitResult struct {
	payload []byte
	err     error
}

// Session owns all protocol state for one connected device: the frame
// index counter, the rotating session key, the receive buffer, the
// outstanding response waiters and the authentication state machine.
// Sessions are created by the Engine after transport connect and
// destroyed on disconnect.
type Session struct {
	deviceID string
	tp       transport.Transport
	emit     func(Event)

	defaultTimeout time.Duration

	mu         sync.Mutex
	frameIndex byte
	key        []byte
	rxBuf      []byte
	idle       *time.Timer
	waiters    map[byte]chan waitResult
	closed     bool

	authState   AuthState
	authDone    chan error
	connectBody []byte
}

func newSession(deviceID string, tp transport.Transport, secretKey []byte, timeout time.Duration, emit func(Event)) *Session {
	if timeout <= 0 {
		timeout = command.DefaultTimeout
	}
	key := make([]byte, len(secretKey))
	copy(key, secretKey)
	return &Session{
		deviceID:       deviceID,
		tp:             tp,
		emit:           emit,
		defaultTimeout: timeout,
		key:            key,
		waiters:        make(map[byte]chan waitResult),
		authState:      AuthStateIdle,
		authDone:       make(chan error, 1),
	}
}

// DeviceID returns the device this session belongs to.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// Established reports whether the handshake completed.
func (s *Session) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState == AuthStateEstablished
}

// Key returns a copy of the current session key material.
func (s *Session) Key() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.key))
	copy(out, s.key)
	return out
}

// HandleNotification ingests one raw chunk from the transport. Complete
// physical frames are decoded and dispatched immediately; the unconsumed
// tail stays buffered for the next chunk or the idle flush.
func (s *Session) HandleNotification(data []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.rxBuf = append(s.rxBuf, data...)

	frames, rem := protocol.UnpackWithRemainder(s.rxBuf)
	// The remainder aliases rxBuf; copy so the next append cannot
	// clobber it.
	s.rxBuf = append(s.rxBuf[:0:0], rem...)
	s.resetIdleLocked()
	s.mu.Unlock()

	s.emit(DataReceived{DeviceID: s.deviceID, Length: len(data)})

	for _, f := range frames {
		s.dispatchFrame(f)
	}
}

// resetIdleLocked (re)arms the idle flush timer. Caller holds s.mu.
func (s *Session) resetIdleLocked() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if len(s.rxBuf) == 0 {
		return
	}
	s.idle = time.AfterFunc(IdleFlushInterval, s.idleFlush)
}

// idleFlush force-processes whatever remains buffered when no chunk has
// arrived for IdleFlushInterval. The buffer only ever holds unconsumed
// bytes, so nothing is processed twice; data that still does not decode
// is dropped, bounding memory on malformed trailing input.
func (s *Session) idleFlush() {
	s.mu.Lock()
	if s.closed || len(s.rxBuf) == 0 {
		s.mu.Unlock()
		return
	}
	buf := s.rxBuf
	s.rxBuf = nil
	s.idle = nil
	s.mu.Unlock()

	logging.LogRawBytes("idle flush remainder", buf)

	// One more framing attempt, then try the tail as a bare envelope in
	// case the device omitted physical framing on a short notification.
	frames, rem := protocol.UnpackWithRemainder(buf)
	for _, f := range frames {
		s.dispatchFrame(f)
	}
	if len(rem) > 0 {
		s.dispatchFrame(rem)
	}
}

// dispatchFrame decodes one physical-frame payload through the transport
// and application layers and routes it. Malformed data is dropped
// silently: link noise routinely produces garbage and the physical layer
// has already resynchronized.
func (s *Session) dispatchFrame(frame []byte) {
	env, err := protocol.UnpackTransport(frame, s.Key())
	if err != nil {
		logging.Debug("dropping undecodable envelope",
			zap.String("device", s.deviceID),
			zap.Error(err),
		)
		return
	}

	msg := protocol.UnpackApp(env.Payload)
	if msg == nil || len(msg.Payload) == 0 {
		logging.Debug("dropping malformed application frame",
			zap.String("device", s.deviceID),
		)
		return
	}

	logging.LogFrame(s.deviceID, "rx", env.AckType.String(), msg.Payload)

	switch env.AckType {
	case protocol.AckTypeAck:
		// The CONNECT echo must advance the auth state before the
		// waiter wakes: the device may send its step-2 challenge in
		// the same notification chunk.
		if s.handleConnectEcho(msg) {
			return
		}
		s.resolve(msg.FrameIndex, msg.Payload)

	case protocol.AckTypeRequestWithAck:
		s.dispatchRequest(msg, env.Encrypted)

	case protocol.AckTypeRequestWithoutAck:
		// Only read-class commands register waiters for these.
		s.resolve(msg.FrameIndex, msg.Payload)

	default:
		logging.Debug("ignoring ack-type none frame",
			zap.String("device", s.deviceID),
		)
	}
}

// dispatchRequest routes a device-initiated request: spontaneous reports
// get an immediate [opcode, 0x01] echo on the same frame index (the
// device blocks on it), handshake opcodes feed the auth machine, and
// anything else resolves the pending business waiter.
func (s *Session) dispatchRequest(msg *protocol.AppMessage, encrypted bool) {
	op := msg.Payload[0]
	switch op {
	case command.OpUploadStatus:
		report, err := command.ParseStatusReport(msg.Payload)
		if err != nil {
			logging.Warn("bad status report",
				zap.String("device", s.deviceID),
				zap.Error(err),
			)
			return
		}
		s.emit(LockStatus{DeviceID: s.deviceID, Report: report})
		s.emit(DeviceReport{DeviceID: s.deviceID, Opcode: op, Payload: msg.Payload})
		s.reply(msg.FrameIndex, []byte{op, command.ResultSuccess}, encrypted)

	case command.OpUnlockLog:
		log, err := command.ParseUnlockLog(msg.Payload)
		if err != nil {
			logging.Warn("bad unlock log",
				zap.String("device", s.deviceID),
				zap.Error(err),
			)
			return
		}
		s.emit(UnlockLogged{DeviceID: s.deviceID, Log: log})
		s.emit(DeviceReport{DeviceID: s.deviceID, Opcode: op, Payload: msg.Payload})
		s.reply(msg.FrameIndex, []byte{op, command.ResultSuccess}, encrypted)

	case command.OpAuthStep2, command.OpAuthStep3, command.OpAuthStep4:
		s.handleAuthStep(msg, encrypted)

	default:
		s.resolve(msg.FrameIndex, msg.Payload)
	}
}

// reply writes an acknowledgment on the given frame index, mirroring the
// encryption of the message it answers.
func (s *Session) reply(frameIndex byte, payload []byte, encrypted bool) {
	app := protocol.PackApp(payload, frameIndex)
	body, err := protocol.PackTransport(app, protocol.TransportOptions{
		AckType:   protocol.AckTypeAck,
		Encrypted: encrypted,
		Key:       s.Key(),
	})
	if err != nil {
		s.emit(EngineError{DeviceID: s.deviceID, Err: errors.Wrap(err, "build reply")})
		return
	}
	if err := s.tp.Write(s.deviceID, protocol.PackFrame(body)); err != nil {
		s.emit(EngineError{DeviceID: s.deviceID, Err: errors.Wrap(err, "write reply")})
	}
}

// resolve hands an inbound payload to the waiter registered for its
// frame index, if any.
func (s *Session) resolve(frameIndex byte, payload []byte) {
	s.mu.Lock()
	ch, ok := s.waiters[frameIndex]
	if ok {
		delete(s.waiters, frameIndex)
	}
	s.mu.Unlock()

	if !ok {
		logging.Debug("no waiter for frame",
			zap.String("device", s.deviceID),
			zap.Uint8("frameIndex", frameIndex),
		)
		return
	}
	ch <- waitResult{payload: payload}
}

// rejectWaiter fails the waiter registered for the frame index, if any.
func (s *Session) rejectWaiter(frameIndex byte, err error) {
	s.mu.Lock()
	ch, ok := s.waiters[frameIndex]
	if ok {
		delete(s.waiters, frameIndex)
	}
	s.mu.Unlock()

	if ok {
		ch <- waitResult{err: err}
	}
}

// Send builds the 3-layer packet for cmd, writes it, and awaits the
// matched response when the command calls for one. The structured
// Response carries business validation outcomes; Go errors are reserved
// for transport failures, timeouts and teardown.
func (s *Session) Send(ctx context.Context, cmd command.Command) (command.Response, error) {
	raw, err := s.sendRaw(ctx, cmd)
	if err != nil {
		return command.Response{}, err
	}
	if raw == nil {
		// fire-and-forget send
		return command.Response{Success: true}, nil
	}
	return cmd.Validate(raw), nil
}

// sendRaw is Send without response validation; the auth handshake needs
// the untouched ack bytes.
func (s *Session) sendRaw(ctx context.Context, cmd command.Command) ([]byte, error) {
	await := cmd.AckType == protocol.AckTypeRequestWithAck || cmd.ReadClass

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	idx := s.frameIndex
	var ch chan waitResult
	if await {
		if _, dup := s.waiters[idx]; dup {
			s.mu.Unlock()
			return nil, errors.Wrapf(ErrWaiterExists, "frame %d", idx)
		}
		ch = make(chan waitResult, 1)
		s.waiters[idx] = ch
	}
	key := make([]byte, len(s.key))
	copy(key, s.key)
	s.mu.Unlock()

	app := protocol.PackApp(cmd.Payload, idx)
	body, err := protocol.PackTransport(app, protocol.TransportOptions{
		AckType:   cmd.AckType,
		Encrypted: cmd.Encrypted,
		Key:       key,
	})
	if err != nil {
		s.removeWaiter(idx)
		return nil, errors.Wrapf(err, "build %s", cmd.Name)
	}

	logging.LogFrame(s.deviceID, "tx", cmd.AckType.String(), cmd.Payload)

	if err := s.tp.Write(s.deviceID, protocol.PackFrame(body)); err != nil {
		s.removeWaiter(idx)
		return nil, errors.Wrapf(err, "write %s", cmd.Name)
	}

	// The counter advances only for acknowledged requests; everything
	// else reuses the index.
	if cmd.AckType == protocol.AckTypeRequestWithAck {
		s.mu.Lock()
		s.frameIndex++
		s.mu.Unlock()
	}

	if !await {
		return nil, nil
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.payload, nil
	case <-timer.C:
		s.removeWaiter(idx)
		return nil, errors.Wrapf(ErrCommandTimeout, "%s on frame %d after %v", cmd.Name, idx, timeout)
	case <-ctx.Done():
		s.removeWaiter(idx)
		return nil, ctx.Err()
	}
}

func (s *Session) removeWaiter(idx byte) {
	s.mu.Lock()
	delete(s.waiters, idx)
	s.mu.Unlock()
}

// close destroys the session: the idle timer stops, every pending waiter
// is rejected with a connection-closed error, and an in-flight handshake
// fails the same way.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.rxBuf = nil
	waiters := s.waiters
	s.waiters = make(map[byte]chan waitResult)
	authPending := s.authState != AuthStateEstablished && s.authState != AuthStateFailed && s.authState != AuthStateIdle
	if authPending {
		s.authState = AuthStateFailed
	}
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- waitResult{err: ErrConnectionClosed}
	}
	if authPending {
		s.signalAuth(ErrConnectionClosed)
	}
}

func (s *Session) signalAuth(err error) {
	select {
	case s.authDone <- err:
	default:
	}
}
