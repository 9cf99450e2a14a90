package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tank-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s string) string {
		switch s {
		case "OK":
			return "ok"
		case "LOW":
			return "low"
		case "BOTTOM":
			return "bottom"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Tank Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.low { color: orange; font-weight: bold; }
.bottom { color: red; font-weight: bold; }
.unknown { color: #888; }
.safe { color: green; }
.unsafe { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Tank Sensor</h1>

<h2>Level</h2>
<table>
<tr><th>State</th><td class="{{stateClass (printf "%s" .State)}}">{{.State}}</td></tr>
<tr><th>Water level</th><td>{{if .HasLevel}}{{.Level}} mm{{else}}no data yet{{end}}</td></tr>
<tr><th>Relay</th><td {{if .RelayKnown}}class="{{if eq .Relay 1}}safe{{else}}unsafe{{end}}"{{end}}>{{if .RelayKnown}}{{if eq .Relay 1}}ON (safe){{else}}OFF (unsafe){{end}}{{else}}not driven yet{{end}}</td></tr>
<tr><th>LED</th><td>{{if .LEDOn}}on{{else}}off{{end}}</td></tr>
{{if .PermanentAlarm}}<tr><th>Sensor</th><td class="unsafe">PERMANENT ALARM ({{.ErrorStreak}} consecutive errors)</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Measurements</th><td>{{.Counts.Measurements}}</td></tr>
<tr><th>Sensor errors</th><td>{{.Counts.SensorErrors}}</td></tr>
<tr><th>Relay changes</th><td>{{.Counts.RelayChanges}}</td></tr>
<tr><th>Config reloads</th><td>{{.Counts.ConfigReloads}}</td></tr>
</table>

<h2>Thresholds</h2>
<table>
<tr><th>Tank height</th><td>{{.Runtime.TankHeightMM}} mm</td></tr>
<tr><th>Critical on / off</th><td>{{.Runtime.CriticalLevelOnMM}} / {{.Runtime.CriticalLevelOffMM}} mm</td></tr>
<tr><th>Bottom on / off</th><td>{{.Runtime.BottomLevelOnMM}} / {{.Runtime.BottomLevelOffMM}} mm</td></tr>
<tr><th>Blink slow / fast</th><td>{{.Runtime.SlowBlinkMS}} / {{.Runtime.FastBlinkMS}} ms</td></tr>
<tr><th>Measure interval</th><td>{{.Runtime.MeasureIntervalMS}} ms</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Config file</th><td>{{.Config.ConfigPath}}</td></tr>
<tr><th>Sensor port</th><td>{{.Config.SensorDevice}}</td></tr>
<tr><th>Filter window</th><td>{{.Config.MovingAvgN}} samples</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
