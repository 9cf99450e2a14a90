//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives GPIO lines on actual hardware using the Linux GPIO
// character device.
type RealOutput struct {
	chip  *gpiocdev.Chip
	led   *gpiocdev.Line
	relay *gpiocdev.Line
}

// NewRealOutput requests the LED and relay lines as outputs. The relay is
// requested energized (value 1, safe) and the LED dark, so the hardware is
// in the fail-safe state before the first evaluation runs.
func NewRealOutput(pinLED, pinRelay int) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	led, err := chip.RequestLine(pinLED, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pinLED, err)
	}

	relay, err := chip.RequestLine(pinRelay, gpiocdev.AsOutput(1))
	if err != nil {
		led.Close()
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pinRelay, err)
	}

	return &RealOutput{
		chip:  chip,
		led:   led,
		relay: relay,
	}, nil
}

// SetLED sets the indicator LED.
func (r *RealOutput) SetLED(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.led.SetValue(v); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	return nil
}

// SetRelay sets the relay line value.
func (r *RealOutput) SetRelay(value int) error {
	if err := r.relay.SetValue(value); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// Close releases GPIO resources. The relay is driven by an external
// normally-energized circuit: once the line is released it floats and the
// relay drops to the unsafe side, which is the correct powered-off posture.
// The LED is switched off first so a restart does not inherit a lit LED.
func (r *RealOutput) Close() error {
	var errs []error

	if r.led != nil {
		if err := r.led.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear LED: %w", err))
		}
		if err := r.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if r.relay != nil {
		if err := r.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
