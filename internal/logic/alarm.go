package logic

// Evaluate runs one step of the alarm state machine.
//
// level is the last filtered water level in mm, or nil when no valid sample
// exists yet. prev and ledOn are the state and LED value from the previous
// evaluation. Evaluate never touches hardware; the caller applies the
// returned Output.
//
// Hysteresis: each state is entered at a strict threshold and left at a
// different, easier exit threshold, so a level oscillating inside the dead
// band cannot flap the state. Transitions only move between adjacent
// severities (OK<->LOW, LOW<->BOTTOM).
func Evaluate(level *int, prev State, ledOn bool, th Thresholds) Output {
	if level == nil {
		// Fail-safe: no data yet. Hold the state, LED off, relay energized.
		return Output{State: prev, LEDOn: false, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
	}

	l := *level
	switch prev {
	case StateLow:
		switch {
		case l <= th.BottomOnMM:
			return Output{State: StateBottom, LEDOn: false, NextIntervalMS: th.FastBlinkMS, Relay: RelayUnsafe}
		case l >= th.CriticalOffMM:
			return Output{State: StateOK, LEDOn: false, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
		default:
			// Dead band: toggle the LED so it blinks at the evaluation cadence.
			return Output{State: StateLow, LEDOn: !ledOn, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
		}

	case StateBottom:
		if l > th.BottomOffMM {
			return Output{State: StateLow, LEDOn: false, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
		}
		// Steady LED while in BOTTOM, not blinking. The hold branch selects
		// the slow interval even though entry into BOTTOM selects the fast
		// one; deployed installations depend on this cadence.
		return Output{State: StateBottom, LEDOn: true, NextIntervalMS: th.SlowBlinkMS, Relay: RelayUnsafe}

	default: // StateOK, or anything unrecognized
		if l <= th.CriticalOnMM {
			return Output{State: StateLow, LEDOn: false, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
		}
		return Output{State: StateOK, LEDOn: false, NextIntervalMS: th.SlowBlinkMS, Relay: RelaySafe}
	}
}
