package server

import (
	"html/template"
	"log/slog"
	"net/http"
)

var jobListTemplate = template.Must(template.New("jobs").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>redraw jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 4px 10px; border-bottom: 1px solid #ddd; text-align: left; }
img { image-rendering: pixelated; max-width: 160px; }
</style>
</head>
<body>
<h1>redraw jobs</h1>
{{if not .}}<p>No jobs yet. POST a config to /api/v1/jobs to start one.</p>{{else}}
<table>
<tr><th>Job</th><th>State</th><th>Reference</th><th>Progress</th><th>Committed</th><th>Error</th><th>Canvas</th></tr>
{{range .}}
<tr>
<td><a href="/api/v1/jobs/{{.ID}}/status">{{.ID}}</a></td>
<td>{{.State}}{{if .Error}}: {{.Error}}{{end}}</td>
<td>{{.Config.RefPath}}</td>
<td>{{.Percent}}% ({{.Iterations}})</td>
<td>{{.Committed}}</td>
<td>{{.CurrentError}} / {{.InitialError}}</td>
<td><a href="/api/v1/jobs/{{.ID}}/diff.png"><img src="/api/v1/jobs/{{.ID}}/best.png" alt="canvas"></a></td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := jobListTemplate.Execute(w, s.jobManager.ListJobs()); err != nil {
		slog.Error("Failed to render job list", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
