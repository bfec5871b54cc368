package render

import (
	"html/template"
	"io"
)

var cardsTemplate = template.Must(template.New("cards").Parse(`
{{- if not .}}<p class="empty">No results.</p>{{end -}}
{{- range .}}
<div class="result-card{{if eq .Badge "Original"}} original{{end}}">
  <div class="result-card-header">
    <div>
      {{- range .Blocks}}
      <div class="result-{{.Field}}">{{if .Label}}{{.Label}}: {{end}}{{.Value}}</div>
      {{- end}}
    </div>
    <span class="result-badge">{{.Badge}}</span>
  </div>
  {{- if .Score}}
  <div class="result-score">Score: {{.Score}}</div>
  {{- end}}
  {{- if .Lyrics}}
  <div class="lyrics-snippet">{{.Lyrics}}...</div>
  {{- end}}
  {{- if .Elapsed}}
  <div class="result-time">Time: {{.Elapsed}}</div>
  {{- end}}
  {{- if .IDLine}}
  <div class="result-trackid">Track ID: {{.IDLine}}</div>
  {{- end}}
</div>
{{- end}}
`))

var tableTemplate = template.Must(template.New("table").Parse(`
{{- if not .Rows}}<p class="empty">No rows.</p>{{else -}}
<table class="metadata-table">
  <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{- range .Rows}}
    <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
  {{- end}}
  </tbody>
</table>
{{- end}}
`))

// HTML writes cards as an escaped HTML fragment.
func HTML(w io.Writer, cards []Card) error {
	return cardsTemplate.Execute(w, cards)
}

// TableHTML writes t as an escaped HTML table.
func TableHTML(w io.Writer, t Table) error {
	return tableTemplate.Execute(w, t)
}
