package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lockwire/lockwire/internal/command"
	"github.com/lockwire/lockwire/internal/protocol"
	"github.com/lockwire/lockwire/internal/transport"
)

func TestStatusReportAutoAckAndEvent(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	// lockState=5 (locked), battery=2 (high), lock ID 1.
	report := []byte{command.OpUploadStatus, 0x05, 0x02, 0x01, 0x00, 0x00, 0x00}
	f.push(deviceFrame(t, report, 0x21, protocol.AckTypeRequestWithAck, key))

	w := <-f.writeCh
	env, msg := decodeWrite(t, w, key)
	if env.AckType != protocol.AckTypeAck || !env.Encrypted {
		t.Errorf("auto-ack control %v/%v", env.AckType, env.Encrypted)
	}
	if msg.FrameIndex != 0x21 {
		t.Errorf("auto-ack on frame %d, want 0x21", msg.FrameIndex)
	}
	if !bytes.Equal(msg.Payload, []byte{command.OpUploadStatus, command.ResultSuccess}) {
		t.Errorf("auto-ack payload % x", msg.Payload)
	}

	ev := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(LockStatus)
		return ok
	}).(LockStatus)
	r := ev.Report
	if !r.IsLocked {
		t.Error("lockState=5 should report locked")
	}
	if r.Battery.Percent() != 100 {
		t.Errorf("battery = %d%%, want 100", r.Battery.Percent())
	}
	if r.LockID != "1" || !r.Engaged {
		t.Errorf("lock id %q engaged=%v", r.LockID, r.Engaged)
	}
}

func TestUnlockLogAutoAckAndEvent(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.Local)
	log := []byte{command.OpUnlockLog, 0x00, command.ResultSuccess, 0xD2, 0x04, 0x00, 0x00}
	log = append(log, command.EncodeBCDTime(ts)...)
	f.push(deviceFrame(t, log, 0x42, protocol.AckTypeRequestWithAck, key))

	w := <-f.writeCh
	_, msg := decodeWrite(t, w, key)
	if msg.FrameIndex != 0x42 || !bytes.Equal(msg.Payload, []byte{command.OpUnlockLog, command.ResultSuccess}) {
		t.Errorf("auto-ack idx=%d payload=% x", msg.FrameIndex, msg.Payload)
	}

	ev := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(UnlockLogged)
		return ok
	}).(UnlockLogged)
	if ev.Log.LockID != "1234" || !ev.Log.Success {
		t.Errorf("log lock=%q success=%v", ev.Log.LockID, ev.Log.Success)
	}
	if !ev.Log.Timestamp.Equal(ts) {
		t.Errorf("log timestamp %v, want %v", ev.Log.Timestamp, ts)
	}
}

func TestMalformedReportDropped(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	// Truncated status report: no ack, no event, session stays healthy.
	f.push(deviceFrame(t, []byte{command.OpUploadStatus, 0x05}, 0x30, protocol.AckTypeRequestWithAck, key))

	select {
	case w := <-f.writeCh:
		t.Fatalf("unexpected write % x for malformed report", w)
	case <-time.After(100 * time.Millisecond):
	}

	go func() {
		w := <-f.writeCh
		_, msg := decodeWrite(t, w, key)
		f.push(deviceFrame(t, []byte{command.OpLockControl, command.ResultSuccess}, msg.FrameIndex, protocol.AckTypeAck, key))
	}()
	if _, err := e.Unlock(context.Background(), testDevice, "8", false); err != nil {
		t.Fatalf("unlock after bad report: %v", err)
	}
}

func TestReadDeviceInfoEmitsEvent(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	go func() {
		w := <-f.writeCh
		_, msg := decodeWrite(t, w, key)
		if !bytes.Equal(msg.Payload, []byte{command.OpReadDeviceInfo}) {
			t.Errorf("device info query payload % x", msg.Payload)
		}
		// fw 2.7, battery high, 320 locks
		info := []byte{command.OpReadDeviceInfo, command.ResultSuccess, 0x02, 0x07, 0x02, 0x40, 0x01, 0x00}
		f.push(deviceFrame(t, info, msg.FrameIndex, protocol.AckTypeAck, key))
	}()

	resp, err := e.ReadDeviceInfo(context.Background(), testDevice)
	if err != nil {
		t.Fatalf("read device info: %v", err)
	}
	if !resp.Success || resp.DeviceInfo == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.DeviceInfo.Firmware != "2.7" || resp.DeviceInfo.LockCount != 320 {
		t.Errorf("decoded info %+v", resp.DeviceInfo)
	}

	ev := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(DeviceInfoRead)
		return ok
	}).(DeviceInfoRead)
	if ev.Info.LockCount != 320 {
		t.Errorf("event lock count %d", ev.Info.LockCount)
	}
}

func TestControlRecordUpload(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	go func() {
		w := <-f.writeCh
		_, msg := decodeWrite(t, w, key)
		if !bytes.Equal(msg.Payload, []byte{command.OpRecordUploadControl, command.SubOpRecordStart}) {
			t.Errorf("record control payload % x", msg.Payload)
		}
		f.push(deviceFrame(t, []byte{command.OpRecordUploadControl, command.ResultSuccess}, msg.FrameIndex, protocol.AckTypeAck, key))
	}()

	resp, err := e.ControlRecordUpload(context.Background(), testDevice, command.SubOpRecordStart)
	if err != nil || !resp.Success {
		t.Fatalf("record upload control: %v / %+v", err, resp)
	}

	ev := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(RecordUploadChanged)
		return ok
	}).(RecordUploadChanged)
	if ev.Action != command.SubOpRecordStart {
		t.Errorf("event action %d", ev.Action)
	}
}

func TestPushAuthorization(t *testing.T) {
	f := newFakeTransport()
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	key := establish(t, f, e)

	// 1..5 and 100 compress to two ranges in a single packet.
	ids := []string{"1", "2", "3", "4", "5", "100"}

	go func() {
		w := <-f.writeCh // task config
		_, msg := decodeWrite(t, w, key)
		if msg.Payload[0] != command.OpTaskConfig {
			t.Errorf("expected task config first, got opcode 0x%02x", msg.Payload[0])
		}
		if got := uint16(msg.Payload[2]) | uint16(msg.Payload[3])<<8; got != 2 {
			t.Errorf("task config segment count %d, want 2", got)
		}
		f.push(deviceFrame(t, []byte{command.OpTaskConfig, command.ResultSuccess}, msg.FrameIndex, protocol.AckTypeAck, key))

		w = <-f.writeCh // segment packet
		_, msg = decodeWrite(t, w, key)
		want := []byte{
			command.OpLockSegments, 2,
			0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00,
			0x64, 0x00, 0x00, 0x00, 0x64, 0x00, 0x00, 0x00,
		}
		if !bytes.Equal(msg.Payload, want) {
			t.Errorf("segment payload\n got % x\nwant % x", msg.Payload, want)
		}
		f.push(deviceFrame(t, []byte{command.OpLockSegments, command.ResultSuccess}, msg.FrameIndex, protocol.AckTypeAck, key))
	}()

	cfg := command.TaskConfig{
		Op:       command.TaskOpAdd,
		AuthType: command.AuthTypeLongTerm,
	}
	if err := e.PushAuthorization(context.Background(), testDevice, cfg, ids); err != nil {
		t.Fatalf("push authorization: %v", err)
	}
}

// fakeScanner layers discovery onto the fake transport.
type fakeScanner struct {
	*fakeTransport
	sightings map[string]int
}

func (f *fakeScanner) Scan(ctx context.Context, window time.Duration, found transport.FoundFunc) error {
	for id, rssi := range f.sightings {
		found(id, rssi)
	}
	return nil
}

func TestScanEmitsEvents(t *testing.T) {
	f := &fakeScanner{
		fakeTransport: newFakeTransport(),
		sightings:     map[string]int{"11:22:33:44:55:66": -61, "AA:BB:CC:00:11:22": -78},
	}
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})

	if err := e.Scan(context.Background(), 500*time.Millisecond); err != nil {
		t.Fatalf("scan: %v", err)
	}

	seen := map[string]int{}
	for len(seen) < 2 {
		ev := awaitEvent(t, e, func(ev Event) bool {
			_, ok := ev.(DeviceFound)
			return ok
		}).(DeviceFound)
		seen[ev.DeviceID] = ev.RSSI
	}
	if seen["11:22:33:44:55:66"] != -61 {
		t.Errorf("sightings %v", seen)
	}

	done := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(ScanCompleted)
		return ok
	}).(ScanCompleted)
	if done.Found != 2 {
		t.Errorf("scan completed with %d, want 2", done.Found)
	}
}

func TestScanUnsupportedTransport(t *testing.T) {
	e := NewEngine(newFakeTransport(), Options{SecretKey: []byte("shared-secret")})
	if err := e.Scan(context.Background(), time.Second); !errors.Is(err, ErrScanUnsupported) {
		t.Fatalf("err = %v, want ErrScanUnsupported", err)
	}
}

// notifyingTransport adds device-initiated disconnect reporting.
type notifyingTransport struct {
	*fakeTransport
	onDisc func(deviceID string, err error)
}

func (f *notifyingTransport) OnDisconnect(fn func(deviceID string, err error)) {
	f.onDisc = fn
}

func TestDeviceInitiatedDisconnect(t *testing.T) {
	f := &notifyingTransport{fakeTransport: newFakeTransport()}
	e := NewEngine(f, Options{SecretKey: []byte("shared-secret")})
	establish(t, f.fakeTransport, e)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Unlock(context.Background(), testDevice, "5", false)
		errCh <- err
	}()
	<-f.writeCh

	f.onDisc(testDevice, transport.ErrDeviceNotConnected)

	if err := <-errCh; !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("pending send got %v, want ErrConnectionClosed", err)
	}
	ev := awaitEvent(t, e, func(ev Event) bool {
		_, ok := ev.(Disconnected)
		return ok
	}).(Disconnected)
	if ev.Reason == nil {
		t.Error("device-initiated disconnect should carry a reason")
	}
}

// gatedTransport parks Connect until the gate opens, exposing the window
// between the duplicate check and session registration.
type gatedTransport struct {
	*fakeTransport
	gate chan struct{}
}

func (g *gatedTransport) Connect(ctx context.Context, deviceID string) error {
	<-g.gate
	return g.fakeTransport.Connect(ctx, deviceID)
}

func TestConnectRejectsConcurrentDuplicate(t *testing.T) {
	f := newFakeTransport()
	g := &gatedTransport{fakeTransport: f, gate: make(chan struct{})}
	e := NewEngine(g, Options{SecretKey: []byte("shared-secret")})

	firstErr := make(chan error, 1)
	go func() { firstErr <- e.Connect(context.Background(), testDevice) }()

	// The first connect is parked inside the dial; the device slot is
	// already claimed, so a second connect must bounce instead of
	// replacing the first session.
	waitForAuthState(t, e, AuthStateIdle)
	if err := e.Connect(context.Background(), testDevice); err == nil {
		t.Fatal("second connect succeeded while the first was still dialing")
	}

	go deviceHandshake(t, f, e, []byte("rotated-key-0004"))
	close(g.gate)
	if err := <-firstErr; err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if s := waitForAuthState(t, e, AuthStateEstablished); s == nil {
		t.Fatal("session missing after handshake")
	}
}
