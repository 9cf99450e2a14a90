// Package logic contains pure decision logic for tank level alarming.
// This package has NO external dependencies (no serial, GPIO, MQTT, OS, or
// time.Sleep). All inputs arrive as explicit parameters so every path is
// testable without hardware.
package logic

// State represents the alarm severity derived from the filtered water level.
type State string

const (
	StateOK     State = "OK"     // enough water, LED off, relay energized
	StateLow    State = "LOW"    // low water, LED blinks slowly, relay energized
	StateBottom State = "BOTTOM" // nearly empty, LED steady, relay de-energized
)

// Relay values. The relay is wired normally-energized: 1 = energized = safe
// (sufficient water), 0 = de-energized = unsafe. Losing power therefore
// fails to the unsafe side.
const (
	RelaySafe   = 1
	RelayUnsafe = 0
)

// Thresholds is the runtime-tunable subset the state machine evaluates
// against. Correct hysteresis requires
// BottomOnMM < BottomOffMM <= CriticalOnMM < CriticalOffMM, which leaves a
// dead band between each enter and exit threshold.
type Thresholds struct {
	CriticalOnMM  int
	CriticalOffMM int
	BottomOnMM    int
	BottomOffMM   int
	SlowBlinkMS   int
	FastBlinkMS   int
}

// Output is the result of one state machine evaluation. NextIntervalMS is
// both the delay until the next evaluation and the effective LED blink
// period, since LOW toggles the LED once per evaluation.
type Output struct {
	State          State
	LEDOn          bool
	NextIntervalMS int
	Relay          int
}

// Counters tracks activity totals since startup, surfaced in status output.
type Counters struct {
	Measurements  int
	SensorErrors  int
	RelayChanges  int
	ConfigReloads int
}
