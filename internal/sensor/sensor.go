// Package sensor implements the request/response exchange with an A02YYUW
// style ultrasonic distance sensor over UART.
// The real implementation uses a go.bug.st/serial port.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// TriggerByte requests one measurement from the sensor.
const TriggerByte = 0x55

// The sensor answers with a fixed 4-byte frame:
// 0xFF 0xFF <distance high> <distance low>, distance in mm big-endian.
const (
	frameLen    = 4
	frameHeader = 0xFF
)

// Timeout bounds the wait for a response frame. The sensor read is the only
// blocking operation in the control loop, so this also bounds loop stall.
const Timeout = 300 * time.Millisecond

// ErrTimeout is returned when no complete frame arrives within Timeout.
var ErrTimeout = errors.New("sensor: timeout waiting for response frame")

// ErrBadFrame is returned when the response does not start with the fixed
// header pair.
var ErrBadFrame = errors.New("sensor: malformed response frame")

// OutOfRangeError reports a decoded distance outside the plausible window
// given by the runtime configuration (dead zone minimum to tank height).
type OutOfRangeError struct {
	DistanceMM int
	MinMM      int
	MaxMM      int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("sensor: distance %d mm outside [%d, %d]", e.DistanceMM, e.MinMM, e.MaxMM)
}

// Port is the minimal serial interface the sensor needs.
type Port interface {
	io.ReadWriter
	io.Closer

	// SetReadTimeout bounds how long a single Read may block.
	// A Read that hits the timeout returns n=0 with a nil error.
	SetReadTimeout(t time.Duration) error
}

// Sensor performs measurement exchanges over a Port.
type Sensor struct {
	port Port
}

// New creates a Sensor on the given port.
func New(port Port) *Sensor {
	return &Sensor{port: port}
}

// ReadDistance triggers one measurement and waits up to Timeout for the
// response frame. The decoded distance is validated against [minMM, maxMM],
// both taken from the current runtime configuration. Errors are
// per-measurement and never fatal to the caller.
func (s *Sensor) ReadDistance(minMM, maxMM int) (int, error) {
	if _, err := s.port.Write([]byte{TriggerByte}); err != nil {
		return 0, fmt.Errorf("sensor: write trigger: %w", err)
	}
	if err := s.port.SetReadTimeout(Timeout); err != nil {
		return 0, fmt.Errorf("sensor: set read timeout: %w", err)
	}

	buf := make([]byte, frameLen)
	deadline := time.Now().Add(Timeout)
	n := 0
	for n < frameLen {
		m, err := s.port.Read(buf[n:])
		if err != nil {
			return 0, fmt.Errorf("sensor: read: %w", err)
		}
		if m == 0 {
			// Expired read timeout: the port reports n=0 with nil error.
			return 0, ErrTimeout
		}
		n += m
		if n < frameLen && !time.Now().Before(deadline) {
			return 0, ErrTimeout
		}
	}

	if buf[0] != frameHeader || buf[1] != frameHeader {
		return 0, fmt.Errorf("%w: % X", ErrBadFrame, buf)
	}

	distance := int(buf[2])<<8 | int(buf[3])
	if distance < minMM || distance > maxMM {
		return 0, &OutOfRangeError{DistanceMM: distance, MinMM: minMM, MaxMM: maxMM}
	}
	return distance, nil
}

// Close releases the underlying port.
func (s *Sensor) Close() error {
	return s.port.Close()
}
