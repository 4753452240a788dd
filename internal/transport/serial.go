package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/lockwire/lockwire/internal/logging"
)

// SerialPort drives a UART BLE passthrough module (HM-10 style): the
// module holds the GATT connection and mirrors the notify characteristic
// onto its serial line, so one port carries exactly one device.
type SerialPort struct {
	// Path is the serial device, e.g. "/dev/ttyUSB0".
	Path string

	// BaudRate defaults to 115200 when zero.
	BaudRate int

	mu       sync.Mutex
	port     serial.Port
	deviceID string
	notify   NotificationFunc
}

// NewSerialPort creates a serial-backed transport for the given port.
func NewSerialPort(path string) *SerialPort {
	return &SerialPort{Path: path, BaudRate: 115200}
}

// OnNotification registers the notification sink.
func (s *SerialPort) OnNotification(fn NotificationFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Connect opens the port. The passthrough module pairs with exactly one
// device, so deviceID only labels the notifications.
func (s *SerialPort) Connect(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notify == nil {
		return ErrNotInitialized
	}
	if s.port != nil {
		return nil
	}

	mode := &serial.Mode{BaudRate: s.BaudRate}
	port, err := serial.Open(s.Path, mode)
	if err != nil {
		return errors.Wrapf(ErrConnectFailed, "open %s: %v", s.Path, err)
	}

	s.port = port
	s.deviceID = deviceID

	logging.Debug("serial port open",
		zap.String("path", s.Path),
		zap.Int("baud", s.BaudRate),
		zap.String("device", deviceID),
	)

	go s.readPump(port, deviceID)
	return nil
}

func (s *SerialPort) readPump(port serial.Port, deviceID string) {
	buf := make([]byte, 512)
	for {
		n, err := port.Read(buf)
		if err != nil {
			logging.Debug("serial read loop ended",
				zap.String("path", s.Path),
				zap.Error(err),
			)
			return
		}
		if n == 0 {
			continue
		}

		s.mu.Lock()
		fn := s.notify
		open := s.port != nil
		s.mu.Unlock()
		if !open {
			return
		}
		if fn != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			fn(deviceID, chunk)
		}
	}
}

// Write sends raw bytes down the line.
func (s *SerialPort) Write(deviceID string, data []byte) error {
	s.mu.Lock()
	port := s.port
	connected := s.deviceID == deviceID && port != nil
	s.mu.Unlock()

	if !connected {
		return errors.Wrap(ErrDeviceNotConnected, deviceID)
	}

	for len(data) > 0 {
		n, err := port.Write(data)
		if err != nil {
			return errors.Wrapf(err, "serial write %s", s.Path)
		}
		data = data[n:]
	}
	return nil
}

// Disconnect closes the port. Idempotent.
func (s *SerialPort) Disconnect(deviceID string) error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.deviceID = ""
	s.mu.Unlock()

	if port == nil {
		return nil
	}
	return port.Close()
}
