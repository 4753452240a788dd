package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lockwire/lockwire/internal/logging"
)

// WSBridge talks to a BLE-to-WebSocket gateway: a small daemon sitting
// next to the radio that exposes one socket per connected device and
// relays characteristic writes and notifications as binary messages.
//
// Gateway endpoints:
//
//	GET /scan?window_ms=N   text messages, one JSON object per sighting
//	GET /device/{id}        binary messages both ways, raw GATT bytes
type WSBridge struct {
	// Host is the gateway address, e.g. "192.168.1.20:9034".
	Host string

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration

	mu     sync.Mutex
	conns  map[string]*websocket.Conn
	notify NotificationFunc
	onDisc func(deviceID string, err error)
}

// NewWSBridge creates a gateway-backed transport.
func NewWSBridge(host string) *WSBridge {
	return &WSBridge{
		Host:             host,
		HandshakeTimeout: 10 * time.Second,
		conns:            make(map[string]*websocket.Conn),
	}
}

// OnNotification registers the notification sink.
func (b *WSBridge) OnNotification(fn NotificationFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = fn
}

// OnDisconnect registers a callback fired when a device socket dies
// without a local Disconnect call.
func (b *WSBridge) OnDisconnect(fn func(deviceID string, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDisc = fn
}

// Connect dials the per-device socket. The gateway performs the BLE
// connect and characteristic discovery before completing the handshake,
// so a successful dial means the device is ready for writes.
func (b *WSBridge) Connect(ctx context.Context, deviceID string) error {
	b.mu.Lock()
	if b.notify == nil {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	if _, ok := b.conns[deviceID]; ok {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	u := url.URL{Scheme: "ws", Host: b.Host, Path: "/device/" + deviceID}
	dialer := websocket.Dialer{HandshakeTimeout: b.HandshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusNotFound:
				return errors.Wrapf(ErrCharacteristicMissing, "device %s", deviceID)
			case http.StatusServiceUnavailable:
				return errors.Wrap(ErrUnavailable, b.Host)
			}
		}
		return errors.Wrapf(ErrConnectFailed, "dial %s: %v", u.String(), err)
	}

	b.mu.Lock()
	b.conns[deviceID] = conn
	b.mu.Unlock()

	logging.Debug("bridge device socket open",
		zap.String("device", deviceID),
		zap.String("gateway", b.Host),
	)

	go b.readPump(deviceID, conn)
	return nil
}

// readPump forwards binary messages to the notification sink until the
// socket dies.
func (b *WSBridge) readPump(deviceID string, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logging.Debug("bridge read loop ended",
				zap.String("device", deviceID),
				zap.Error(err),
			)
			b.drop(deviceID, err)
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		b.mu.Lock()
		fn := b.notify
		b.mu.Unlock()
		if fn != nil {
			fn(deviceID, data)
		}
	}
}

// Write sends raw bytes to the device's write characteristic.
func (b *WSBridge) Write(deviceID string, data []byte) error {
	b.mu.Lock()
	conn, ok := b.conns[deviceID]
	b.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrDeviceNotConnected, deviceID)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.Wrapf(err, "bridge write to %s", deviceID)
	}
	return nil
}

// Disconnect closes the per-device socket. Idempotent.
func (b *WSBridge) Disconnect(deviceID string) error {
	b.mu.Lock()
	conn, ok := b.conns[deviceID]
	delete(b.conns, deviceID)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

func (b *WSBridge) drop(deviceID string, err error) {
	b.mu.Lock()
	conn, ok := b.conns[deviceID]
	delete(b.conns, deviceID)
	fn := b.onDisc
	b.mu.Unlock()
	if !ok {
		return
	}
	_ = conn.Close()
	if fn != nil {
		fn(deviceID, errors.Wrapf(ErrDeviceNotConnected, "link lost: %v", err))
	}
}

// sighting is one scan result from the gateway.
type sighting struct {
	Device string `json:"device"`
	RSSI   int    `json:"rssi"`
}

// Scan opens the gateway's scan socket for the given window and reports
// every sighting. Returns when the window elapses or ctx is cancelled.
func (b *WSBridge) Scan(ctx context.Context, window time.Duration, found FoundFunc) error {
	u := url.URL{
		Scheme:   "ws",
		Host:     b.Host,
		Path:     "/scan",
		RawQuery: fmt.Sprintf("window_ms=%d", window.Milliseconds()),
	}
	dialer := websocket.Dialer{HandshakeTimeout: b.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "scan dial %s: %v", u.String(), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(window + b.HandshakeTimeout)
	_ = conn.SetReadDeadline(deadline)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil // window elapsed, gateway closed
		}

		var s sighting
		if err := json.Unmarshal(data, &s); err != nil {
			logging.Warn("bridge sent malformed sighting", zap.Error(err))
			continue
		}
		if s.Device != "" {
			found(s.Device, s.RSSI)
		}
	}
}
