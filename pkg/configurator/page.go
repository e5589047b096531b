package configurator

import (
	"html/template"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/relayrx/pkg/receiver"
	"github.com/robotalks/relayrx/pkg/relay"
)

type pageData struct {
	Saved    bool
	Channels []relay.Channel
	Allowed  []relay.Line
	Active   string
	LinkRX   relay.Line
	LinkTX   relay.Line
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"/>
<meta name="viewport" content="width=device-width,initial-scale=1"/>
<title>relayrx config</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;padding:16px;}
table{border-collapse:collapse;width:100%;max-width:820px}
th,td{border:1px solid #ccc;padding:8px;text-align:left}
th{background:#f5f5f5}
button{padding:8px 14px;border:0;border-radius:8px;cursor:pointer}
.row{display:flex;gap:8px;flex-wrap:wrap;margin:12px 0}
.ok{color:green}.muted{color:#666}
</style></head><body><h1>relayrx: output line assignment</h1>
{{- if .Saved}}
<p class="ok">Saved.</p><p><a href="/">Back</a></p>
{{- else}}
<form method="POST" action="/save">
<table><tr><th>#</th><th>Name</th><th>GPIO</th></tr>
{{- range $ch := .Channels}}
<tr><td>{{$ch.Index}}</td><td><b>{{$ch.Label}}</b></td><td><select name="pin_{{$ch.Index}}">
{{- range $line := $.Allowed}}<option value="{{$line}}"{{if eq $line $ch.Line}} selected{{end}}>GPIO {{$line}}</option>{{end -}}
</select></td></tr>
{{- end}}
</table>
<div class="row">
<button type="submit" style="background:#0a7d0a;color:#fff">Save</button>
<a href="/reboot"><button type="button">Reboot</button></a>
<a href="/api/config"><button type="button">JSON</button></a>
</div></form>
<h3>Current state</h3><pre>
{{- range .Channels}}
{{.Label}} => GPIO {{.Line}}
{{- end}}
</pre>
<p>Active: {{.Active}}</p>
{{- end}}
<div class="muted" style="margin-top:16px">Link: RX={{.LinkRX}}, TX={{.LinkTX}}. These GPIOs are excluded from selection.</div>
</body></html>
`))

func configPage(snap receiver.Snapshot) *pageData {
	return &pageData{
		Channels: snap.Channels,
		Allowed:  relay.AllowedLines(),
		Active:   snap.State.Mask.ActiveString(),
		LinkRX:   relay.LinkRXLine,
		LinkTX:   relay.LinkTXLine,
	}
}

func savedPage() *pageData {
	return &pageData{Saved: true, LinkRX: relay.LinkRXLine, LinkTX: relay.LinkTXLine}
}

func renderPage(w http.ResponseWriter, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		glog.Errorf("configurator: render: %v", err)
	}
}
