package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/status"
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
	"bits": func(width, v int) string {
		return fmt.Sprintf("%0*b", width, v)
	},
	"celsius": func(p *float64) string {
		return fmt.Sprintf("%.2f", *p)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Binary Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bits { letter-spacing: 0.3em; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.invalid { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Binary Clock</h1>

<h2>Time</h2>
<table>
<tr><th>Clock</th><td{{if not .Time.Valid}} class="invalid"{{end}}>{{printf "%02d:%02d:%02d" .Time.Hour .Time.Minute .Time.Second}}{{if not .Time.Valid}} (not set){{end}}</td></tr>
<tr><th>Date</th><td>{{printf "%04d-%02d-%02d" .Time.Year .Time.Month .Time.Day}}</td></tr>
<tr><th>Hours</th><td class="bits">{{bits 5 .Time.Hour}}</td></tr>
<tr><th>Minutes</th><td class="bits">{{bits 6 .Time.Minute}}</td></tr>
<tr><th>Seconds</th><td class="bits">{{bits 6 .Time.Second}}</td></tr>
<tr><th>Format</th><td>{{if .Use12Hour}}12h{{else}}24h{{end}}</td></tr>
<tr><th>Buttons</th><td>{{.UIState}}</td></tr>
</table>

<h2>Alarms</h2>
<table>
{{range .Alarms}}{{if .ID}}<tr><th>Alarm {{.ID}}</th><td>{{printf "%02d:%02d:%02d" .Hour .Minute .Second}}</td><td>{{.Repeat}}</td><td class="{{if or .Fired .Enabled}}on{{else}}off{{end}}">{{if .Fired}}RINGING{{else if .Enabled}}armed{{else}}off{{end}}</td></tr>
{{end}}{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Edit sessions</th><td>{{.Counts.Edits}}</td></tr>
<tr><th>Alarms fired</th><td>{{.Counts.AlarmsFired}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>RTC bus</th><td>{{if .Config.Sim}}simulated{{else}}i2c-{{.Config.I2CBus}}{{end}}</td></tr>
{{if .Temperature}}<tr><th>RTC temperature</th><td>{{celsius .Temperature}}&deg;C</td></tr>
{{end}}</table>

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
