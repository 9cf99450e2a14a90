// Package config loads the persisted tank configuration and tracks the
// runtime-tunable subset that may be reloaded while the daemon runs.
// The document is the flat upper-case-key config.json used by existing
// installations; unknown keys are ignored, missing or malformed keys fall
// back to built-in defaults, and loading never fails the boot.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Recognized keys in the config document.
const (
	KeyTankHeight      = "TANK_HEIGHT_MM"
	KeySensorMin       = "SENSOR_TO_WATER_MIN_MM"
	KeyMovingAvgN      = "MOVING_AVG_N"
	KeyCriticalOn      = "CRITICAL_LEVEL_ON_MM"
	KeyCriticalOff     = "CRITICAL_LEVEL_OFF_MM"
	KeyBottomOn        = "BOTTOM_LEVEL_ON_MM"
	KeyBottomOff       = "BOTTOM_LEVEL_OFF_MM"
	KeyLEDPin          = "LED_PIN"
	KeyRelayPin        = "RELAY_PIN"
	KeySlowBlink       = "SLOW_BLINK_MS"
	KeyFastBlink       = "FAST_BLINK_MS"
	KeyMeasureInterval = "MEASURE_INTERVAL_MS"
)

// Config is the full boot-time configuration. LEDPin, RelayPin and
// MovingAvgN are boot-only; everything else is runtime-tunable through
// Runtime and Apply.
type Config struct {
	TankHeightMM       int
	SensorToWaterMinMM int
	MovingAvgN         int
	CriticalLevelOnMM  int
	CriticalLevelOffMM int
	BottomLevelOnMM    int
	BottomLevelOffMM   int
	LEDPin             int
	RelayPin           int
	SlowBlinkMS        int
	FastBlinkMS        int
	MeasureIntervalMS  int
}

// Default returns the built-in configuration, matching the values burned
// into deployed units.
func Default() Config {
	return Config{
		TankHeightMM:       196,
		SensorToWaterMinMM: 30,
		MovingAvgN:         10,
		CriticalLevelOnMM:  150,
		CriticalLevelOffMM: 180,
		BottomLevelOnMM:    50,
		BottomLevelOffMM:   70,
		LEDPin:             15,
		RelayPin:           16,
		SlowBlinkMS:        700,
		FastBlinkMS:        200,
		MeasureIntervalMS:  1000,
	}
}

// Load reads the config document at path. Every recognized key that is
// missing or malformed keeps its default. The returned error is a warning
// only; the Config is always usable and the caller should log and carry on.
func Load(path string) (Config, error) {
	cfg := Default()

	values, err := parseFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config load, using defaults: %w", err)
	}

	for key, ptr := range cfg.fields() {
		if v, ok := values[key]; ok {
			*ptr = v
		}
	}

	if err := validateThresholds(cfg.BottomLevelOnMM, cfg.BottomLevelOffMM, cfg.CriticalLevelOnMM, cfg.CriticalLevelOffMM); err != nil {
		// Inconsistent thresholds would defeat the hysteresis; fall back to
		// the default quartet but keep the other loaded values.
		def := Default()
		cfg.BottomLevelOnMM = def.BottomLevelOnMM
		cfg.BottomLevelOffMM = def.BottomLevelOffMM
		cfg.CriticalLevelOnMM = def.CriticalLevelOnMM
		cfg.CriticalLevelOffMM = def.CriticalLevelOffMM
		return cfg, fmt.Errorf("config load, using default thresholds: %w", err)
	}

	return cfg, nil
}

// parseFile reads the JSON document and extracts every recognized key with
// an integer-compatible value. Non-numeric values for recognized keys are
// dropped (the key keeps its default).
func parseFile(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	values := make(map[string]int)
	for _, key := range allKeys {
		if f, ok := raw[key].(float64); ok {
			values[key] = int(f)
		}
	}
	return values, nil
}

// allKeys lists recognized keys in a stable order, used for deterministic
// change reporting.
var allKeys = []string{
	KeyTankHeight,
	KeySensorMin,
	KeyMovingAvgN,
	KeyCriticalOn,
	KeyCriticalOff,
	KeyBottomOn,
	KeyBottomOff,
	KeyLEDPin,
	KeyRelayPin,
	KeySlowBlink,
	KeyFastBlink,
	KeyMeasureInterval,
}

func (c *Config) fields() map[string]*int {
	return map[string]*int{
		KeyTankHeight:      &c.TankHeightMM,
		KeySensorMin:       &c.SensorToWaterMinMM,
		KeyMovingAvgN:      &c.MovingAvgN,
		KeyCriticalOn:      &c.CriticalLevelOnMM,
		KeyCriticalOff:     &c.CriticalLevelOffMM,
		KeyBottomOn:        &c.BottomLevelOnMM,
		KeyBottomOff:       &c.BottomLevelOffMM,
		KeyLEDPin:          &c.LEDPin,
		KeyRelayPin:        &c.RelayPin,
		KeySlowBlink:       &c.SlowBlinkMS,
		KeyFastBlink:       &c.FastBlinkMS,
		KeyMeasureInterval: &c.MeasureIntervalMS,
	}
}

func validateThresholds(botOn, botOff, critOn, critOff int) error {
	if botOn < botOff && botOff <= critOn && critOn < critOff {
		return nil
	}
	return fmt.Errorf("threshold ordering violated: want BOTTOM_ON(%d) < BOTTOM_OFF(%d) <= CRITICAL_ON(%d) < CRITICAL_OFF(%d)",
		botOn, botOff, critOn, critOff)
}

// Fingerprint returns the hex sha256 digest of the file content, used for
// cheap change detection. The second return is false if the file cannot be
// read.
func Fingerprint(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), true
}

// PollForChange re-fingerprints the file and, when the digest differs from
// lastDigest, re-parses the document. It returns the parsed values and the
// new digest with changed=true. A parse failure is returned as an error
// with changed=false and the old digest, so the caller retains its previous
// runtime config and the file is retried on the next poll.
func PollForChange(path, lastDigest string) (values map[string]int, digest string, changed bool, err error) {
	digest, ok := Fingerprint(path)
	if !ok || digest == lastDigest {
		return nil, lastDigest, false, nil
	}

	values, err = parseFile(path)
	if err != nil {
		return nil, lastDigest, false, fmt.Errorf("config reload: %w", err)
	}
	return values, digest, true, nil
}
