package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/tank-sensor/internal/config"
	"github.com/sweeney/tank-sensor/internal/logic"
)

func newTestTracker() *Tracker {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return NewTracker(start, Config{
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":80",
		ConfigPath:   "/boot/tank/config.json",
		SensorDevice: "/dev/ttyAMA0",
		MovingAvgN:   10,
	}, config.Default().Runtime())
}

func TestTrackerInitialSnapshot(t *testing.T) {
	tr := newTestTracker()
	snap := tr.Snapshot()

	if snap.State != logic.StateOK {
		t.Errorf("initial state = %s, want OK", snap.State)
	}
	if snap.HasLevel {
		t.Error("no level known at startup")
	}
	if snap.RelayKnown {
		t.Error("no relay value known at startup")
	}
	if snap.Runtime.TankHeightMM != 196 {
		t.Errorf("runtime tank height = %d, want 196", snap.Runtime.TankHeightMM)
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := newTestTracker()

	counts := logic.Counters{Measurements: 3, SensorErrors: 1}
	tr.Update(146, true, logic.StateLow, true, logic.RelaySafe, true, 0, false, counts)

	snap := tr.Snapshot()
	if !snap.HasLevel || snap.Level != 146 {
		t.Errorf("level = %d/%v, want 146/true", snap.Level, snap.HasLevel)
	}
	if snap.State != logic.StateLow || !snap.LEDOn {
		t.Errorf("state = %s led = %v", snap.State, snap.LEDOn)
	}
	if !snap.RelayKnown || snap.Relay != logic.RelaySafe {
		t.Errorf("relay = %d/%v", snap.Relay, snap.RelayKnown)
	}
	if snap.Counts != counts {
		t.Errorf("counts = %+v", snap.Counts)
	}
}

func TestTrackerSetRuntime(t *testing.T) {
	tr := newTestTracker()

	rt := config.Default().Runtime()
	rt.CriticalLevelOnMM = 140
	tr.SetRuntime(rt)

	if got := tr.Snapshot().Runtime.CriticalLevelOnMM; got != 140 {
		t.Errorf("runtime view = %d, want 140", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	tr := newTestTracker()
	snap := tr.Snapshot()
	snap.Now = snap.StartTime.Add(90 * time.Second)

	if snap.Uptime() != 90*time.Second {
		t.Errorf("uptime = %v, want 90s", snap.Uptime())
	}
}

func TestFormatJSONNullsBeforeFirstData(t *testing.T) {
	tr := newTestTracker()
	data := FormatJSON(tr.Snapshot())

	var parsed struct {
		Status struct {
			State   string `json:"state"`
			LevelMM *int   `json:"level_mm"`
			Relay   *int   `json:"relay"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.State != "OK" {
		t.Errorf("state = %q, want OK", parsed.Status.State)
	}
	if parsed.Status.LevelMM != nil {
		t.Error("level_mm should be null before the first measurement")
	}
	if parsed.Status.Relay != nil {
		t.Error("relay should be null before the first write")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newTestTracker()
	tr.Update(80, true, logic.StateBottom, true, logic.RelayUnsafe, true, 0, false, logic.Counters{})

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var parsed struct {
		Status struct {
			Event   string `json:"event"`
			Reason  string `json:"reason"`
			State   string `json:"state"`
			LevelMM *int   `json:"level_mm"`
			Relay   *int   `json:"relay"`
			Runtime struct {
				MeasureIntervalMS int `json:"measure_interval_ms"`
			} `json:"runtime"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason = %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.State != "BOTTOM" {
		t.Errorf("state = %q, want BOTTOM", parsed.Status.State)
	}
	if parsed.Status.LevelMM == nil || *parsed.Status.LevelMM != 80 {
		t.Errorf("level_mm = %v, want 80", parsed.Status.LevelMM)
	}
	if parsed.Status.Relay == nil || *parsed.Status.Relay != 0 {
		t.Errorf("relay = %v, want 0", parsed.Status.Relay)
	}
	if parsed.Status.Runtime.MeasureIntervalMS != 1000 {
		t.Errorf("runtime measure interval = %d, want 1000", parsed.Status.Runtime.MeasureIntervalMS)
	}
}
