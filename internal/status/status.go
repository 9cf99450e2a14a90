// Package status provides a thread-safe status tracker for the tank-sensor
// daemon. It is read by the HTTP handlers and serialized into lifecycle
// snapshots (STARTUP, SHUTDOWN, HEARTBEAT).
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tank-sensor/internal/config"
	"github.com/sweeney/tank-sensor/internal/logic"
)

// NetworkInfo contains network state reported by the pi-helper environment.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains boot-time daemon configuration for display.
type Config struct {
	Broker       string
	HTTPAddr     string
	ConfigPath   string
	SensorDevice string
	MovingAvgN   int
	HeartbeatMs  int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Level          int  // last filtered water level in mm
	HasLevel       bool // false until the first valid measurement
	State          logic.State
	LEDOn          bool
	Relay          int  // last applied relay value
	RelayKnown     bool // false until the first relay write
	ErrorStreak    int  // consecutive sensor failures
	PermanentAlarm bool // escalated after repeated sensor failures
	Counts         logic.Counters
	Runtime        config.Runtime
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, boot config and
// initial runtime config.
func NewTracker(startTime time.Time, cfg Config, rt config.Runtime) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateOK,
			StartTime: startTime,
			Config:    cfg,
			Runtime:   rt,
		},
	}
}

// Update sets the control-loop view: level, alarm state, outputs and
// counters. Called from the loop after every evaluation or escalation.
func (t *Tracker) Update(level int, hasLevel bool, state logic.State, ledOn bool, relay int, relayKnown bool, errStreak int, permanent bool, counts logic.Counters) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.HasLevel = hasLevel
	t.snap.State = state
	t.snap.LEDOn = ledOn
	t.snap.Relay = relay
	t.snap.RelayKnown = relayKnown
	t.snap.ErrorStreak = errStreak
	t.snap.PermanentAlarm = permanent
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetRuntime replaces the runtime config view after a reload.
func (t *Tracker) SetRuntime(rt config.Runtime) {
	t.mu.Lock()
	t.snap.Runtime = rt
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
