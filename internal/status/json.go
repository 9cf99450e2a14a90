package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	LevelMM        *int         `json:"level_mm"` // null until the first valid measurement
	LED            bool         `json:"led"`
	Relay          *int         `json:"relay"` // null until the first write
	PermanentAlarm bool         `json:"permanent_alarm"`
	ErrorStreak    int          `json:"error_streak"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
	Runtime        RuntimeJSON  `json:"runtime"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counters.
type CountsJSON struct {
	Measurements  int `json:"measurements"`
	SensorErrors  int `json:"sensor_errors"`
	RelayChanges  int `json:"relay_changes"`
	ConfigReloads int `json:"config_reloads"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of boot-time daemon config.
type ConfigJSON struct {
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	ConfigPath   string `json:"config_path"`
	SensorDevice string `json:"sensor_device"`
	MovingAvgN   int    `json:"moving_avg_n"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
}

// RuntimeJSON is the JSON representation of the live runtime config.
type RuntimeJSON struct {
	TankHeightMM       int `json:"tank_height_mm"`
	SensorToWaterMinMM int `json:"sensor_to_water_min_mm"`
	CriticalLevelOnMM  int `json:"critical_level_on_mm"`
	CriticalLevelOffMM int `json:"critical_level_off_mm"`
	BottomLevelOnMM    int `json:"bottom_level_on_mm"`
	BottomLevelOffMM   int `json:"bottom_level_off_mm"`
	SlowBlinkMS        int `json:"slow_blink_ms"`
	FastBlinkMS        int `json:"fast_blink_ms"`
	MeasureIntervalMS  int `json:"measure_interval_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:          string(snap.State),
		LED:            snap.LEDOn,
		PermanentAlarm: snap.PermanentAlarm,
		ErrorStreak:    snap.ErrorStreak,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Measurements:  snap.Counts.Measurements,
			SensorErrors:  snap.Counts.SensorErrors,
			RelayChanges:  snap.Counts.RelayChanges,
			ConfigReloads: snap.Counts.ConfigReloads,
		},
		Config: ConfigJSON{
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			ConfigPath:   snap.Config.ConfigPath,
			SensorDevice: snap.Config.SensorDevice,
			MovingAvgN:   snap.Config.MovingAvgN,
			HeartbeatMs:  snap.Config.HeartbeatMs,
		},
		Runtime: RuntimeJSON{
			TankHeightMM:       snap.Runtime.TankHeightMM,
			SensorToWaterMinMM: snap.Runtime.SensorToWaterMinMM,
			CriticalLevelOnMM:  snap.Runtime.CriticalLevelOnMM,
			CriticalLevelOffMM: snap.Runtime.CriticalLevelOffMM,
			BottomLevelOnMM:    snap.Runtime.BottomLevelOnMM,
			BottomLevelOffMM:   snap.Runtime.BottomLevelOffMM,
			SlowBlinkMS:        snap.Runtime.SlowBlinkMS,
			FastBlinkMS:        snap.Runtime.FastBlinkMS,
			MeasureIntervalMS:  snap.Runtime.MeasureIntervalMS,
		},
	}

	if snap.HasLevel {
		l := snap.Level
		inner.LevelMM = &l
	}
	if snap.RelayKnown {
		r := snap.Relay
		inner.Relay = &r
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
