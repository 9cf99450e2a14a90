// Package gpio provides digital output control with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives the status LED and the safety relay.
type Output interface {
	// SetLED sets the indicator LED (true = lit).
	SetLED(on bool) error

	// SetRelay sets the relay line value (1 = energized = safe, 0 = unsafe).
	SetRelay(value int) error

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering); the persisted config may
// override them at boot.
const (
	DefaultPinLED   = 15 // status LED
	DefaultPinRelay = 16 // safety relay, normally energized
)
