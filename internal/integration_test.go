package internal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/tank-sensor/internal/config"
	"github.com/sweeney/tank-sensor/internal/gpio"
	"github.com/sweeney/tank-sensor/internal/logic"
	"github.com/sweeney/tank-sensor/internal/output"
	"github.com/sweeney/tank-sensor/internal/report"
	"github.com/sweeney/tank-sensor/internal/sensor"
	"github.com/sweeney/tank-sensor/internal/status"
)

// frame builds a sensor response frame for a distance in mm.
func frame(distanceMM int) []byte {
	return []byte{0xFF, 0xFF, byte(distanceMM >> 8), byte(distanceMM & 0xFF)}
}

// TestIntegrationFullFlow tests the complete flow from serial frames to
// relay writes and status JSON using fakes: sensor decode, level
// conversion, moving average, state machine and output driver.
func TestIntegrationFullFlow(t *testing.T) {
	cfg := config.Default() // 196 mm tank, critical 150/180, bottom 50/70
	rt := cfg.Runtime()

	// Distances walk the tank down and back up. With a 3-sample average
	// the filtered level follows a few readings behind.
	distances := []int{
		30, 30, 30, // level 166: OK
		80, 80, 80, // level 116: into LOW
		150, 150, 150, // level 46: into BOTTOM
		100, 100, 100, // level 96: back to LOW
	}
	responses := make([][]byte, len(distances))
	for i, d := range distances {
		responses[i] = frame(d)
	}

	port := sensor.NewFakePort(responses)
	sens := sensor.New(port)
	samples := logic.NewSampleBuffer(3)
	outputs := gpio.NewFakeOutput()
	reporter := report.NewFake()
	driver := output.New(outputs, reporter)
	tracker := status.NewTracker(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), status.Config{}, rt)

	// Simulate the control loop: one measurement and one evaluation per
	// iteration.
	state := logic.StateOK
	ledOn := false
	var counts logic.Counters
	var seen []logic.State

	for i := range distances {
		d, err := sens.ReadDistance(rt.SensorToWaterMinMM, rt.TankHeightMM)
		if err != nil {
			t.Fatalf("measurement %d: %v", i, err)
		}
		samples.Push(logic.WaterLevel(d, rt.TankHeightMM))
		counts.Measurements++

		avg, ok := samples.Average()
		if !ok {
			t.Fatalf("measurement %d: no average", i)
		}

		out := logic.Evaluate(&avg, state, ledOn, rt.Thresholds())
		state = out.State
		ledOn = out.LEDOn
		seen = append(seen, state)

		if err := driver.ApplyLED(out.LEDOn); err != nil {
			t.Fatalf("measurement %d: led: %v", i, err)
		}
		changed, err := driver.ApplyRelay(out.Relay)
		if err != nil {
			t.Fatalf("measurement %d: relay: %v", i, err)
		}
		if changed {
			counts.RelayChanges++
		}

		relay, relayKnown := driver.LastRelay()
		tracker.Update(avg, true, state, ledOn, relay, relayKnown, 0, false, counts)
	}

	// The walk must visit all three states and end back in LOW.
	visited := map[logic.State]bool{}
	for _, s := range seen {
		visited[s] = true
	}
	for _, want := range []logic.State{logic.StateOK, logic.StateLow, logic.StateBottom} {
		if !visited[want] {
			t.Errorf("state %s never reached: %v", want, seen)
		}
	}
	if state != logic.StateLow {
		t.Errorf("final state: got %s, want LOW", state)
	}

	// Relay: energized once at the start, released in BOTTOM, re-energized
	// on the way back up. Everything else suppressed.
	wantRelay := []int{logic.RelaySafe, logic.RelayUnsafe, logic.RelaySafe}
	if len(outputs.RelayWrites) != len(wantRelay) {
		t.Fatalf("relay writes: got %v, want %v", outputs.RelayWrites, wantRelay)
	}
	for i, want := range wantRelay {
		if outputs.RelayWrites[i] != want {
			t.Errorf("relay write %d: got %d, want %d", i, outputs.RelayWrites[i], want)
		}
	}

	// Every trigger byte went out on the wire.
	if len(port.Written) != len(distances) {
		t.Fatalf("trigger writes: got %d, want %d", len(port.Written), len(distances))
	}
	for i, b := range port.Written {
		if b != sensor.TriggerByte {
			t.Errorf("trigger %d: got %#x, want %#x", i, b, sensor.TriggerByte)
		}
	}

	// Relay transitions were reported.
	joined := strings.Join(reporter.Lines, "\n")
	if !strings.Contains(joined, "relay set to OFF (unsafe)") {
		t.Errorf("missing unsafe relay report: %v", reporter.Lines)
	}
	if !strings.Contains(joined, "relay set to ON (safe)") {
		t.Errorf("missing safe relay report: %v", reporter.Lines)
	}

	// The status JSON reflects the final snapshot.
	var doc struct {
		Status struct {
			State   string `json:"state"`
			LevelMM *int   `json:"level_mm"`
			Relay   *int   `json:"relay"`
			Counts  struct {
				Measurements int `json:"measurements"`
				RelayChanges int `json:"relay_changes"`
			} `json:"counts"`
		} `json:"status"`
	}
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &doc); err != nil {
		t.Fatalf("status JSON: %v", err)
	}
	if doc.Status.State != "LOW" {
		t.Errorf("json state: got %q, want LOW", doc.Status.State)
	}
	if doc.Status.LevelMM == nil || *doc.Status.LevelMM != 96 {
		t.Errorf("json level: got %v, want 96", doc.Status.LevelMM)
	}
	if doc.Status.Relay == nil || *doc.Status.Relay != logic.RelaySafe {
		t.Errorf("json relay: got %v, want 1", doc.Status.Relay)
	}
	if doc.Status.Counts.Measurements != len(distances) {
		t.Errorf("json measurements: got %d, want %d", doc.Status.Counts.Measurements, len(distances))
	}
}

// TestIntegrationSensorFaultForcesUnsafe drives the escalation path: a
// stretch of failed reads trips the forced-unsafe output after five in a
// row, and a good read afterwards lets the evaluation restore it.
func TestIntegrationSensorFaultForcesUnsafe(t *testing.T) {
	cfg := config.Default()
	rt := cfg.Runtime()

	port := sensor.NewFakePort([][]byte{frame(30)})
	sens := sensor.New(port)
	outputs := gpio.NewFakeOutput()
	reporter := report.NewFake()
	driver := output.New(outputs, reporter)

	// One good measurement establishes a level and energizes the relay.
	d, err := sens.ReadDistance(rt.SensorToWaterMinMM, rt.TankHeightMM)
	if err != nil {
		t.Fatalf("good read: %v", err)
	}
	level := logic.WaterLevel(d, rt.TankHeightMM)
	out := logic.Evaluate(&level, logic.StateOK, false, rt.Thresholds())
	driver.ApplyLED(out.LEDOn)
	driver.ApplyRelay(out.Relay)

	// The sensor dies. Five consecutive failures force the outputs.
	port.ReadError = errors.New("port gone")
	streak := 0
	for i := 0; i < 5; i++ {
		if _, err := sens.ReadDistance(rt.SensorToWaterMinMM, rt.TankHeightMM); err == nil {
			t.Fatalf("read %d: expected error", i)
		}
		streak++
	}
	if streak >= 5 {
		driver.ApplyLED(true)
		if changed, _ := driver.ApplyRelay(logic.RelayUnsafe); !changed {
			t.Error("expected the forced relay write to land")
		}
	}

	if got, ok := outputs.LastRelay(); !ok || got != logic.RelayUnsafe {
		t.Fatalf("relay: got %d (ok=%v), want 0", got, ok)
	}
	if got, ok := outputs.LastLED(); !ok || !got {
		t.Fatalf("LED: got %v (ok=%v), want forced on", got, ok)
	}

	// Recovery: the next evaluation with a valid level re-energizes.
	out = logic.Evaluate(&level, out.State, out.LEDOn, rt.Thresholds())
	if changed, _ := driver.ApplyRelay(out.Relay); !changed {
		t.Error("expected the relay to re-energize after recovery")
	}
	if got, _ := outputs.LastRelay(); got != logic.RelaySafe {
		t.Errorf("relay: got %d, want 1 after recovery", got)
	}
}

// TestIntegrationConfigReloadChangesThresholds round-trips a threshold
// change through the persisted file into a live evaluation.
func TestIntegrationConfigReloadChangesThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"CRITICAL_LEVEL_ON_MM": 150}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, warn := config.Load(path)
	if warn != nil {
		t.Fatalf("load: %v", warn)
	}
	rt := cfg.Runtime()
	digest, ok := config.Fingerprint(path)
	if !ok {
		t.Fatal("no fingerprint")
	}

	// 116 mm trips the 150 mm threshold.
	level := 116
	out := logic.Evaluate(&level, logic.StateOK, false, rt.Thresholds())
	if out.State != logic.StateLow {
		t.Fatalf("before reload: got %s, want LOW", out.State)
	}

	// Lower the thresholds on disk and poll, like the control loop does.
	if err := os.WriteFile(path, []byte(`{"CRITICAL_LEVEL_ON_MM": 100, "CRITICAL_LEVEL_OFF_MM": 110}`), 0o644); err != nil {
		t.Fatal(err)
	}
	values, _, changed, err := config.PollForChange(path, digest)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !changed {
		t.Fatal("expected a detected change")
	}
	keys, err := rt.Apply(values)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("changed keys: got %v, want 2", keys)
	}

	// The same level no longer trips the alarm from OK.
	out = logic.Evaluate(&level, logic.StateOK, false, rt.Thresholds())
	if out.State != logic.StateOK {
		t.Errorf("after reload: got %s, want OK", out.State)
	}
}
