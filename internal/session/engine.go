package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lockwire/lockwire/internal/command"
	"github.com/lockwire/lockwire/internal/logging"
	"github.com/lockwire/lockwire/internal/transport"
)

// teardown retry schedule after a failed connect. The retries guarantee
// local resource release only; the business connect is never re-attempted.
var teardownBackoff = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

const eventBufferSize = 64

// DisconnectNotifier is implemented by transports that can report a
// device-initiated link loss.
type DisconnectNotifier interface {
	OnDisconnect(fn func(deviceID string, err error))
}

// Options configures an Engine.
type Options struct {
	// SecretKey is the pre-shared per-device secret, used as the session
	// key until the handshake rotates it. UTF-8 bytes, normalized to 16
	// before any AES operation.
	SecretKey []byte

	// DefaultTimeout bounds each command's response wait when the
	// command does not carry its own. Zero means the package default.
	DefaultTimeout time.Duration

	// AuthTimeout bounds the whole handshake. Zero means 10s.
	AuthTimeout time.Duration
}

// Engine is the top of the protocol stack: it owns one Session per
// connected device, routes transport notifications to them, and exposes
// the business operations. Safe for concurrent use across devices;
// overlapping commands to a single device are the caller's to avoid.
type Engine struct {
	tp   transport.Transport
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session

	events chan Event
}

// NewEngine wires an engine to its transport. The notification sink is
// registered here, so the transport must not be connected yet.
func NewEngine(tp transport.Transport, opts Options) *Engine {
	e := &Engine{
		tp:       tp,
		opts:     opts,
		sessions: make(map[string]*Session),
		events:   make(chan Event, eventBufferSize),
	}
	tp.OnNotification(e.handleNotification)
	if dn, ok := tp.(DisconnectNotifier); ok {
		dn.OnDisconnect(e.handleDeviceDisconnect)
	}
	return e
}

// Events returns the engine's event stream. A consumer that stops
// draining it loses events; the protocol path never blocks on it.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		logging.Warn("event dropped, subscriber not draining",
			zap.String("type", fmt.Sprintf("%T", ev)),
		)
	}
}

func (e *Engine) handleNotification(deviceID string, data []byte) {
	e.mu.Lock()
	s := e.sessions[deviceID]
	e.mu.Unlock()
	if s == nil {
		logging.Debug("notification for unknown device",
			zap.String("device", deviceID),
		)
		return
	}
	s.HandleNotification(data)
}

func (e *Engine) handleDeviceDisconnect(deviceID string, err error) {
	e.mu.Lock()
	s := e.sessions[deviceID]
	delete(e.sessions, deviceID)
	e.mu.Unlock()
	if s == nil {
		return
	}
	s.close()
	if err == nil {
		err = ErrConnectionClosed
	}
	e.emit(Disconnected{DeviceID: deviceID, Reason: err})
}

// Connect establishes the link and runs authentication. The session is
// usable only after Connect returns nil. On any failure the link is torn
// down before returning; teardown itself is retried with backoff so the
// transport's resources are released even on a flaky link.
func (e *Engine) Connect(ctx context.Context, deviceID string) error {
	// The session claims its registry slot before the dial, under the
	// same lock as the duplicate check, so two overlapping Connect calls
	// for one device cannot both proceed.
	s := newSession(deviceID, e.tp, e.opts.SecretKey, e.opts.DefaultTimeout, e.emit)
	e.mu.Lock()
	if _, exists := e.sessions[deviceID]; exists {
		e.mu.Unlock()
		return errors.Errorf("session: device %s already connected", deviceID)
	}
	e.sessions[deviceID] = s
	e.mu.Unlock()

	if err := e.tp.Connect(ctx, deviceID); err != nil {
		e.mu.Lock()
		delete(e.sessions, deviceID)
		e.mu.Unlock()
		return errors.Wrapf(err, "connect %s", deviceID)
	}

	if err := s.authenticate(ctx, e.opts.AuthTimeout); err != nil {
		e.mu.Lock()
		delete(e.sessions, deviceID)
		e.mu.Unlock()
		s.close()
		e.teardown(deviceID)
		return err
	}

	logging.Info("session established", zap.String("device", deviceID))
	e.emit(Connected{DeviceID: deviceID})
	return nil
}

// teardown disconnects the transport, retrying on failure so a dead link
// cannot leak its resources.
func (e *Engine) teardown(deviceID string) {
	var err error
	if err = e.tp.Disconnect(deviceID); err == nil {
		return
	}
	for _, backoff := range teardownBackoff {
		time.Sleep(backoff)
		if err = e.tp.Disconnect(deviceID); err == nil {
			return
		}
	}
	logging.Error("teardown failed",
		zap.String("device", deviceID),
		zap.Error(err),
	)
}

// Disconnect destroys the device's session, rejecting every pending
// waiter, and releases the link.
func (e *Engine) Disconnect(deviceID string) error {
	e.mu.Lock()
	s := e.sessions[deviceID]
	delete(e.sessions, deviceID)
	e.mu.Unlock()

	if s != nil {
		s.close()
	}
	err := e.tp.Disconnect(deviceID)
	e.emit(Disconnected{DeviceID: deviceID})
	return err
}

// session returns the established session for deviceID.
func (e *Engine) session(deviceID string) (*Session, error) {
	e.mu.Lock()
	s := e.sessions[deviceID]
	e.mu.Unlock()
	if s == nil {
		return nil, errors.Wrap(ErrDeviceNotConnected, deviceID)
	}
	if !s.Established() {
		return nil, errors.Wrap(ErrNotEstablished, deviceID)
	}
	return s, nil
}

// Send issues a prebuilt command on an established session.
func (e *Engine) Send(ctx context.Context, deviceID string, cmd command.Command) (command.Response, error) {
	s, err := e.session(deviceID)
	if err != nil {
		return command.Response{}, err
	}
	return s.Send(ctx, cmd)
}

// Unlock disengages the given lock.
func (e *Engine) Unlock(ctx context.Context, deviceID, lockID string, force bool) (command.Response, error) {
	cmd, err := command.NewUnlock(lockID, force)
	if err != nil {
		return command.Response{}, err
	}
	return e.Send(ctx, deviceID, cmd)
}

// Lock engages the given lock.
func (e *Engine) Lock(ctx context.Context, deviceID, lockID string, force bool) (command.Response, error) {
	cmd, err := command.NewLock(lockID, force)
	if err != nil {
		return command.Response{}, err
	}
	return e.Send(ctx, deviceID, cmd)
}

// TimeSync pushes the given timestamp to the device clock.
func (e *Engine) TimeSync(ctx context.Context, deviceID string, t time.Time) (command.Response, error) {
	return e.Send(ctx, deviceID, command.NewTimeSync(t))
}

// ReadDeviceInfo queries firmware, battery and lock count, emitting a
// DeviceInfoRead event alongside the returned response.
func (e *Engine) ReadDeviceInfo(ctx context.Context, deviceID string) (command.Response, error) {
	resp, err := e.Send(ctx, deviceID, command.NewReadDeviceInfo())
	if err == nil && resp.Success && resp.DeviceInfo != nil {
		e.emit(DeviceInfoRead{DeviceID: deviceID, Info: resp.DeviceInfo})
	}
	return resp, err
}

// ControlRecordUpload starts, stops or completes record upload, emitting
// RecordUploadChanged on success.
func (e *Engine) ControlRecordUpload(ctx context.Context, deviceID string, action byte) (command.Response, error) {
	cmd, err := command.NewRecordUploadControl(action)
	if err != nil {
		return command.Response{}, err
	}
	resp, err := e.Send(ctx, deviceID, cmd)
	if err == nil && resp.Success {
		e.emit(RecordUploadChanged{DeviceID: deviceID, Action: action})
	}
	return resp, err
}

// PushAuthorization configures a task on the key controller and uploads
// the authorized lock-ID list as compressed segments. The task config
// goes first so the device knows how many segments to expect; each
// segment packet must be acknowledged before the next is sent.
func (e *Engine) PushAuthorization(ctx context.Context, deviceID string, cfg command.TaskConfig, lockIDs []string) error {
	cfg.SegmentCount = command.SegmentCount(lockIDs)

	cmd, err := command.NewTaskConfig(cfg)
	if err != nil {
		return err
	}
	resp, err := e.Send(ctx, deviceID, cmd)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.Errorf("task config rejected: %s", resp.Err)
	}

	cmds, err := command.NewLockSegments(lockIDs)
	if err != nil {
		return err
	}
	for i, c := range cmds {
		resp, err := e.Send(ctx, deviceID, c)
		if err != nil {
			return errors.Wrapf(err, "segment packet %d/%d", i+1, len(cmds))
		}
		if !resp.Success {
			return errors.Errorf("segment packet %d/%d rejected: %s", i+1, len(cmds), resp.Err)
		}
	}
	return nil
}

// Scan discovers devices for the given window, emitting DeviceFound per
// sighting and ScanCompleted when the window elapses. The transport must
// implement Scanner.
func (e *Engine) Scan(ctx context.Context, window time.Duration) error {
	scanner, ok := e.tp.(transport.Scanner)
	if !ok {
		return ErrScanUnsupported
	}

	found := 0
	err := scanner.Scan(ctx, window, func(deviceID string, rssi int) {
		found++
		e.emit(DeviceFound{DeviceID: deviceID, RSSI: rssi})
	})
	if err != nil {
		return errors.Wrap(err, "scan")
	}
	e.emit(ScanCompleted{Found: found})
	return nil
}
