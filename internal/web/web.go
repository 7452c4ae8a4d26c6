package web

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/local/imageplanner/internal/statuscheck"
)

// Web serves a small operator dashboard: dependency health plus pointers to
// the machine endpoints. No auth; it is expected to sit behind the same
// network boundary as /metrics.
type Web struct {
	checker *statuscheck.Checker
	tpl     *template.Template
}

func New(checker *statuscheck.Checker) *Web {
	return &Web{checker: checker, tpl: template.Must(template.New("status").Parse(statusPage))}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/web/status", w.handleStatus)
	mux.HandleFunc("/web/status.json", w.handleStatusJSON)
}

func (w *Web) handleStatus(rw http.ResponseWriter, r *http.Request) {
	sum := w.checker.Summary(r.Context())
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := w.tpl.Execute(rw, sum); err != nil {
		http.Error(rw, "render failed", http.StatusInternalServerError)
	}
}

func (w *Web) handleStatusJSON(rw http.ResponseWriter, r *http.Request) {
	sum := w.checker.Summary(r.Context())
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(sum)
}

const statusPage = `<!DOCTYPE html>
<html>
<head>
<title>Image Planner Status</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.ok { color: #2a7f2a; } .bad { color: #b00020; }
</style>
</head>
<body>
<h1>Image Planner</h1>
<table>
<tr><th>Subsystem</th><th>State</th><th>Detail</th></tr>
<tr><td>Redis</td><td class="{{if .Redis.OK}}ok{{else}}bad{{end}}">{{if .Redis.OK}}up{{else}}down{{end}}</td><td>{{.Redis.Message}}</td></tr>
<tr><td>Plan archive (S3)</td><td class="{{if .Archive.OK}}ok{{else}}bad{{end}}">{{if .Archive.OK}}up{{else}}down{{end}}</td><td>{{.Archive.Message}}</td></tr>
<tr><td>Browser</td><td class="{{if .Browser.OK}}ok{{else}}bad{{end}}">{{if .Browser.OK}}up{{else}}down{{end}}</td><td>{{.Browser.Message}}</td></tr>
<tr><td>YouTube</td><td class="{{if .YouTube.OK}}ok{{else}}bad{{end}}">{{if .YouTube.OK}}up{{else}}down{{end}}</td><td>{{.YouTube.Message}}</td></tr>
</table>
<p><a href="/metrics">metrics</a> · <a href="/web/status.json">status.json</a></p>
</body>
</html>`
