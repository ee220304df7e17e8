package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/rf433-receiver/internal/mqtt"
	"github.com/sweeney/rf433-receiver/internal/status"
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
	"protocol": mqtt.FormatProtocol,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>RF433 Receiver</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.idle { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>RF433 Receiver{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Last Event</h2>
<table>
{{with .Last}}<tr><th>Code</th><td id="last-code" class="active">{{.Code}}</td></tr>
<tr><th>Action</th><td id="last-action">{{.Action}}</td></tr>
<tr><th>Protocol</th><td id="last-protocol">{{.ProtocolName}} ({{protocol .ProtocolID}})</td></tr>
<tr><th>Bits</th><td id="last-bits">{{.Bits}}</td></tr>
<tr><th>Received</th><td id="last-time">{{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{else}}<tr><th>Code</th><td id="last-code" class="idle">none yet</td></tr>
<tr><th>Action</th><td id="last-action"></td></tr>
<tr><th>Protocol</th><td id="last-protocol"></td></tr>
<tr><th>Bits</th><td id="last-bits"></td></tr>
<tr><th>Received</th><td id="last-time"></td></tr>{{end}}
<tr><th>Receiving</th><td>{{if .Receiving}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if or .MQTTBuffered .MQTTDropped}}<tr><th>Offline queue</th><td>{{.MQTTBuffered}} queued, {{.MQTTDropped}} dropped</td></tr>
{{end}}{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>START</th><td>{{.Counts.Start}}</td></tr>
<tr><th>CONTINUE</th><td>{{.Counts.Continue}}</td></tr>
<tr><th>STOP</th><td>{{.Counts.Stop}}</td></tr>
</table>

<h2>Pipeline</h2>
<table>
<tr><th>Edges</th><td>{{.Pipeline.Edges}}</td></tr>
<tr><th>Pulses decoded</th><td>{{.Pipeline.Pulses}}</td></tr>
<tr><th>Pulses dropped</th><td{{if .Pipeline.PulseDrops}} class="warn"{{end}}>{{.Pipeline.PulseDrops}} ({{.Pipeline.PulseOverflows}} overflows)</td></tr>
<tr><th>Events filtered</th><td>{{.Pipeline.EventsFiltered}}</td></tr>
<tr><th>Events dropped</th><td{{if .Pipeline.EventDrops}} class="warn"{{end}}>{{.Pipeline.EventDrops}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Input</th><td>pin {{.Config.Pin}} via {{.Config.Backend}}</td></tr>
<tr><th>Protocols</th><td>{{range $i, $p := .Config.Protocols}}{{if $i}}, {{end}}{{$p}}{{else}}none{{end}}</td></tr>
<tr><th>Events</th><td>{{.Config.Events}}</td></tr>
<tr><th>Queues</th><td>{{.Config.PulseQueue}} pulses, {{.Config.EventQueue}} events, {{.Config.EventTimeoutMs}}ms wait</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");

  function set(id, text) {
    document.getElementById(id).textContent = text;
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.rf) {
        set("last-code", msg.rf.code);
        document.getElementById("last-code").className = msg.rf.action === "STOP" ? "idle" : "active";
        set("last-action", msg.rf.action);
        set("last-protocol", (msg.rf.protocol_name || "") + " (" + msg.rf.protocol + ")");
        set("last-bits", msg.rf.bits);
        set("last-time", msg.rf.timestamp);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.Topic,
	}
	indexTmpl.Execute(w, data)
}
