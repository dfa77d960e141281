package report

import (
	"fmt"
	"html/template"
	"strings"
)

// reportTemplate is the HTML document sent to the external renderer, which
// prints it to landscape A4 with 20mm margins.
var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"rate":   formatFloat,
	"orDash": orDash,
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; padding: 20px; }
    h1 { color: #333; }
    h2 { color: #666; margin-top: 30px; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; }
    th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
    th { background-color: #f2f2f2; }
    .kpi { display: flex; gap: 20px; margin: 20px 0; }
    .kpi-item { flex: 1; padding: 15px; background: #f9f9f9; border-radius: 8px; }
    .kpi-value { font-size: 24px; font-weight: bold; }
    .kpi-label { color: #666; font-size: 14px; }
  </style>
</head>
<body>
  <h1>{{.Tracker.Name}}</h1>
  <p><strong>Tracker ID:</strong> {{.Tracker.TrackerID}}</p>
  <p><strong>Period:</strong> {{.Period}}</p>
  <p><strong>Granularity:</strong> {{.Granularity}}</p>

  {{if .Overview}}
    <h2>Overview</h2>
    <div class="kpi">
      <div class="kpi-item">
        <div class="kpi-value">{{.Overview.Visits}}</div>
        <div class="kpi-label">Visits</div>
      </div>
      <div class="kpi-item">
        <div class="kpi-value">{{.Overview.Starts}}</div>
        <div class="kpi-label">Starts</div>
      </div>
      <div class="kpi-item">
        <div class="kpi-value">{{.Overview.Completes}}</div>
        <div class="kpi-label">Completes</div>
      </div>
      <div class="kpi-item">
        <div class="kpi-value">{{rate .Overview.CompletionRate}}%</div>
        <div class="kpi-label">Completion Rate</div>
      </div>
      <div class="kpi-item">
        <div class="kpi-value">{{.Overview.Leads}}</div>
        <div class="kpi-label">Leads</div>
      </div>
    </div>
    <h3>Time Series</h3>
    <table>
      <thead>
        <tr><th>Date</th><th>Visits</th><th>Starts</th><th>Completes</th><th>Leads</th></tr>
      </thead>
      <tbody>
        {{range .Overview.Timeseries}}
        <tr><td>{{.Date}}</td><td>{{.Visits}}</td><td>{{.Starts}}</td><td>{{.Completes}}</td><td>{{.Leads}}</td></tr>
        {{end}}
      </tbody>
    </table>
  {{end}}

  {{if .HasTopPages}}
    <h2>Top Pages</h2>
    <table>
      <thead>
        <tr><th>Path</th><th>Visits</th></tr>
      </thead>
      <tbody>
        {{range .TopPages}}
        <tr><td>{{.Path}}</td><td>{{.Visits}}</td></tr>
        {{end}}
      </tbody>
    </table>
  {{end}}

  {{if .HasDropoff}}
    <h2>Drop-off</h2>
    <table>
      <thead>
        <tr><th>Date</th><th>Starts</th><th>Completes</th><th>Dropoff</th></tr>
      </thead>
      <tbody>
        {{range .Dropoff}}
        <tr><td>{{.Date}}</td><td>{{.Starts}}</td><td>{{.Completes}}</td><td>{{.Dropoff}}</td></tr>
        {{end}}
      </tbody>
    </table>
  {{end}}

  {{if .HasUTM}}
    <h2>UTM Stats</h2>
    <table>
      <thead>
        <tr><th>Source</th><th>Medium</th><th>Campaign</th><th>Visits</th><th>Starts</th><th>Completes</th></tr>
      </thead>
      <tbody>
        {{range .UTM}}
        <tr><td>{{orDash .Source}}</td><td>{{orDash .Medium}}</td><td>{{orDash .Campaign}}</td><td>{{.Visits}}</td><td>{{.Starts}}</td><td>{{.Completes}}</td></tr>
        {{end}}
      </tbody>
    </table>
  {{end}}
</body>
</html>
`))

func renderHTML(d *data) (string, error) {
	var b strings.Builder
	if err := reportTemplate.Execute(&b, d); err != nil {
		return "", fmt.Errorf("failed to render report html: %w", err)
	}
	return b.String(), nil
}
