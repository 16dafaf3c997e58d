package document

import (
	"encoding/base64"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"

	"collisio/internal/analysis"
	"collisio/internal/report"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"dataURI": func(img []byte) template.URL {
		return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
	},
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"row": func(t *analysis.FrequencyTable, i int) []int { return t.Counts[i] },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Calibri, Arial, sans-serif; max-width: 8in; margin: 0 auto; color: #222; }
header { text-align: center; page-break-after: always; padding-top: 2in; }
h1.title { color: #17365d; font-size: 28pt; font-weight: normal; }
section { page-break-after: always; }
section h2 { color: #365f91; }
figure { text-align: center; margin: 1em 0; }
figure img { width: 5.5in; }
figcaption { font-style: italic; }
p.narrative { text-align: justify; font-size: 11pt; }
table { border-collapse: collapse; margin: 1em auto; font-size: 10pt; }
td, th { border: 1px solid #999; padding: 2px 8px; }
td.n { text-align: right; }
.notes { text-align: left; font-size: 10pt; }
</style>
</head>
<body>
<header>
<h1 class="title">{{.Title}}</h1>
<p>{{.Preparer}}</p>
<p><em>Generated {{.GeneratedAt.Format "January 2, 2006 15:04 MST"}}</em></p>
{{- if .Warnings}}
<div class="notes"><h3>Notes</h3><ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul></div>
{{- end}}
</header>
{{range .Sections}}
<section id="section-{{.Ordinal}}">
<h2>{{.Heading}}</h2>
{{- if .HasFigure}}
<figure>
<img src="{{dataURI .Image}}" alt="{{.Title}}">
<figcaption>{{.Caption}}</figcaption>
</figure>
{{- end}}
<p class="narrative">{{.Text}}</p>
{{- with .Hotspots}}
<h3>Accident Hotspots</h3>
<table>
<tr><th>{{.RowField}}</th>{{range .ColLabels}}<th>{{.}}</th>{{end}}</tr>
{{- $t := .}}
{{- range $i, $label := .RowLabels}}
<tr><td>{{$label}}</td>{{range row $t $i}}<td class="n">{{comma .}}</td>{{end}}</tr>
{{- end}}
</table>
{{- end}}
</section>
{{end}}
</body>
</html>
`))

// WriteHTML writes r as a standalone HTML page with inline images.
func WriteHTML(w io.Writer, r *report.Report) error {
	return htmlTemplate.Execute(w, r)
}
