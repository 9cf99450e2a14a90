// Package output applies alarm decisions to the LED and relay hardware.
// The state machine only decides; this package owns the side effects,
// including the relay write-suppression policy.
package output

import (
	"fmt"

	"github.com/sweeney/tank-sensor/internal/gpio"
	"github.com/sweeney/tank-sensor/internal/logic"
)

// Reporter receives human-readable status lines for relay transitions.
type Reporter interface {
	Report(line string) error
}

// Driver applies desired outputs to the hardware.
type Driver struct {
	out gpio.Output
	rep Reporter

	// lastRelay is nil until the first relay write, so the first apply
	// always reaches the hardware regardless of the desired value.
	lastRelay *int
}

// New creates a Driver over the given output lines. rep may be nil.
func New(out gpio.Output, rep Reporter) *Driver {
	return &Driver{out: out, rep: rep}
}

// ApplyLED writes the LED value unconditionally. The hardware write is
// idempotent, so no suppression is needed on this line.
func (d *Driver) ApplyLED(on bool) error {
	return d.out.SetLED(on)
}

// ApplyRelay writes the relay only when the desired value differs from the
// last applied one, avoiding redundant hardware toggling. A real write is
// reported as a status event and returned as changed=true.
func (d *Driver) ApplyRelay(desired int) (changed bool, err error) {
	if d.lastRelay != nil && *d.lastRelay == desired {
		return false, nil
	}

	if err := d.out.SetRelay(desired); err != nil {
		return false, err
	}
	v := desired
	d.lastRelay = &v

	if d.rep != nil {
		if err := d.rep.Report(fmt.Sprintf("relay set to %s", relayString(desired))); err != nil {
			// Reporting failures never block output application.
			return true, nil
		}
	}
	return true, nil
}

// LastRelay returns the last applied relay value; ok is false before the
// first write.
func (d *Driver) LastRelay() (int, bool) {
	if d.lastRelay == nil {
		return 0, false
	}
	return *d.lastRelay, true
}

func relayString(v int) string {
	if v == logic.RelaySafe {
		return "ON (safe)"
	}
	return "OFF (unsafe)"
}
