// Package templates holds the dashboard page and the fragments patched in
// over Datastar SSE. Components are templ components so handlers can render
// them the same way whether they serve a full page or a fragment.
package templates

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

	// Element ids targeted by SSE patches.
	KPIsID   = "kpis"
	ChartsID = "charts"
	TableID  = "data-table"
	StatusID = "status"
)

var tmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"datastarScript": func() string { return datastarScript },
}).Parse(pageTemplate))

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tmpl.ExecuteTemplate(w, name, data)
	})
}

func Page(d PageData) templ.Component {
	return render("page", d)
}

func Status(d PageData) templ.Component {
	return render("status", d)
}

func KPIs(d DashboardData) templ.Component {
	return render("kpis", d)
}

func Charts(d DashboardData) templ.Component {
	return render("charts", d)
}

func Table(d DashboardData) templ.Component {
	return render("table", d)
}

// RenderString renders c into a string for an SSE patch.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

const pageTemplate = `
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="{{datastarScript}}"></script>
<style>
body{background:#0e1117;color:#fff;font-family:system-ui,sans-serif;margin:0;padding:24px}
h1{margin-top:0}
.layout{display:grid;grid-template-columns:260px 1fr;gap:24px}
.panel{background:#1e1e1e;border-radius:14px;padding:16px}
.kpi-grid{display:grid;grid-template-columns:repeat(4,1fr);gap:16px}
.kpi-card{background:#1e1e1e;padding:20px;border-radius:14px;text-align:center;box-shadow:0 4px 14px rgba(0,0,0,.6)}
.kpi-title{font-size:14px;color:#b0b0b0}
.kpi-value{font-size:32px;font-weight:bold}
.kpi-delta{font-size:14px}
.chart-grid{display:grid;grid-template-columns:1fr 1fr;gap:16px;margin-top:24px}
.chart-grid .wide{grid-column:1/3}
.chart-grid img{width:100%;background:#1e1e1e;border-radius:14px}
.info{background:#10324f;border-radius:8px;padding:12px}
.error{background:#4f1010;border-radius:8px;padding:12px}
select{width:100%;min-height:120px;background:#0e1117;color:#fff}
table{width:100%;border-collapse:collapse;margin-top:24px;font-size:13px}
th,td{border-bottom:1px solid #333;padding:6px;text-align:left}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="layout">
<aside class="panel">
<form action="/upload" method="post" enctype="multipart/form-data">
<label for="file">Upload sales file</label>
<input id="file" type="file" name="file" accept=".csv,.tsv,.txt,.xlsx" required>
<button type="submit">Upload</button>
</form>
{{if .HasTable}}{{template "filters" .Filters}}{{end}}
</aside>
<main>
{{template "status" .}}
{{if .HasTable}}
{{template "kpis" .Dashboard}}
{{template "charts" .Dashboard}}
{{template "table" .Dashboard}}
{{end}}
</main>
</div>
</body>
</html>
{{end}}

{{define "status"}}<div id="status">
{{- if .Error}}<div class="error" role="alert">{{.Error}}</div>
{{- else if not .HasTable}}<div class="info">Please upload a sales CSV file to continue</div>
{{- else if .Dashboard.Empty}}<div class="info">{{.Dashboard.Message}}</div>
{{- else}}<div class="source">Showing {{.Source}}</div>
{{- end}}</div>{{end}}

{{define "filters"}}<div data-signals="{{.Signals}}">
<h2>Filters</h2>
<label for="regions">Select Region</label>
<select id="regions" multiple data-bind-regions data-on-change="@get('/sse/dashboard')">
{{- range .Regions}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>
{{- end}}
</select>
<label for="categories">Select Category</label>
<select id="categories" multiple data-bind-categories data-on-change="@get('/sse/dashboard')">
{{- range .Categories}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>
{{- end}}
</select>
</div>{{end}}

{{define "kpis"}}<div id="kpis" class="kpi-grid">
{{- range .Cards}}
<div class="kpi-card" data-kpi="{{.Name}}">
<div class="kpi-title">{{.Title}}</div>
<div class="kpi-value">{{.Value}}</div>
{{- with .Delta}}
<div class="kpi-delta {{.Direction}}" style="color: {{.Color}}">{{.Arrow}} {{.Text}}</div>
{{- end}}
</div>
{{- end}}
</div>{{end}}

{{define "charts"}}<div id="charts" class="chart-grid">
{{- if .Empty}}
<div class="info wide">{{.Message}}</div>
{{- else}}
<figure class="wide"><figcaption>Sales Trend</figcaption><img alt="Sales trend" src="{{.Charts.Trend}}"></figure>
<figure><figcaption>Category-wise Sales</figcaption><img alt="Sales by category" src="{{.Charts.Category}}"></figure>
<figure><figcaption>Region-wise Sales</figcaption><img alt="Sales by region" src="{{.Charts.Region}}"></figure>
{{- end}}
</div>{{end}}

{{define "table"}}<div id="data-table">
<h2>Data Preview</h2>
{{- with .Table}}
<p>{{if .Truncated}}Showing first {{.Shown}} of {{.Filtered}} matching rows{{else}}{{.Filtered}} matching rows{{end}} ({{.Total}} total)</p>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</div>{{end}}
`
