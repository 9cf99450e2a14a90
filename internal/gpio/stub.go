//go:build !linux

package gpio

import "errors"

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(pinLED, pinRelay int) (*RealOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetLED is not implemented on non-Linux platforms.
func (r *RealOutput) SetLED(on bool) error {
	return errors.New("gpio: not supported")
}

// SetRelay is not implemented on non-Linux platforms.
func (r *RealOutput) SetRelay(value int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutput) Close() error {
	return nil
}
