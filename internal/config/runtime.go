package config

import (
	"github.com/sweeney/tank-sensor/internal/logic"
)

// runtimeKeys is the whitelist of keys that may change without a restart.
// Pin assignments and the filter window are boot-only and are silently
// ignored by Apply even when present in a reload payload.
var runtimeKeys = []string{
	KeyTankHeight,
	KeySensorMin,
	KeyCriticalOn,
	KeyCriticalOff,
	KeyBottomOn,
	KeyBottomOff,
	KeySlowBlink,
	KeyFastBlink,
	KeyMeasureInterval,
}

// Runtime is the runtime-tunable subset of the configuration. It is owned
// by the control loop and mutated only through Apply.
type Runtime struct {
	TankHeightMM       int
	SensorToWaterMinMM int
	CriticalLevelOnMM  int
	CriticalLevelOffMM int
	BottomLevelOnMM    int
	BottomLevelOffMM   int
	SlowBlinkMS        int
	FastBlinkMS        int
	MeasureIntervalMS  int
}

// Runtime extracts the runtime-tunable subset from a loaded Config.
func (c Config) Runtime() Runtime {
	return Runtime{
		TankHeightMM:       c.TankHeightMM,
		SensorToWaterMinMM: c.SensorToWaterMinMM,
		CriticalLevelOnMM:  c.CriticalLevelOnMM,
		CriticalLevelOffMM: c.CriticalLevelOffMM,
		BottomLevelOnMM:    c.BottomLevelOnMM,
		BottomLevelOffMM:   c.BottomLevelOffMM,
		SlowBlinkMS:        c.SlowBlinkMS,
		FastBlinkMS:        c.FastBlinkMS,
		MeasureIntervalMS:  c.MeasureIntervalMS,
	}
}

// Thresholds returns the view the alarm state machine evaluates against.
func (r Runtime) Thresholds() logic.Thresholds {
	return logic.Thresholds{
		CriticalOnMM:  r.CriticalLevelOnMM,
		CriticalOffMM: r.CriticalLevelOffMM,
		BottomOnMM:    r.BottomLevelOnMM,
		BottomOffMM:   r.BottomLevelOffMM,
		SlowBlinkMS:   r.SlowBlinkMS,
		FastBlinkMS:   r.FastBlinkMS,
	}
}

func (r *Runtime) fields() map[string]*int {
	return map[string]*int{
		KeyTankHeight:      &r.TankHeightMM,
		KeySensorMin:       &r.SensorToWaterMinMM,
		KeyCriticalOn:      &r.CriticalLevelOnMM,
		KeyCriticalOff:     &r.CriticalLevelOffMM,
		KeyBottomOn:        &r.BottomLevelOnMM,
		KeyBottomOff:       &r.BottomLevelOffMM,
		KeySlowBlink:       &r.SlowBlinkMS,
		KeyFastBlink:       &r.FastBlinkMS,
		KeyMeasureInterval: &r.MeasureIntervalMS,
	}
}

// Apply merges whitelisted keys from a reload payload into the runtime
// config and returns the keys that actually changed, in document key order.
// A payload whose merged thresholds would violate the hysteresis ordering
// is rejected as a whole: the previous runtime config is kept and an error
// is returned for reporting.
func (r *Runtime) Apply(values map[string]int) ([]string, error) {
	candidate := *r
	fields := candidate.fields()

	var changed []string
	for _, key := range runtimeKeys {
		v, ok := values[key]
		if !ok || v == *fields[key] {
			continue
		}
		*fields[key] = v
		changed = append(changed, key)
	}

	if len(changed) == 0 {
		return nil, nil
	}

	if err := validateThresholds(candidate.BottomLevelOnMM, candidate.BottomLevelOffMM,
		candidate.CriticalLevelOnMM, candidate.CriticalLevelOffMM); err != nil {
		return nil, err
	}

	*r = candidate
	return changed, nil
}
