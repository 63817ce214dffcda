package console

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 80

var titleCaser = cases.Title(language.English)

// templateFuncs is sprig plus a few helpers for world summaries.
var templateFuncs = func() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["title"] = titleCaser.String
	fm["vec"] = func(v [3]float64) string {
		return fmt.Sprintf("(%.2f, %.2f, %.2f)", v[0], v[1], v[2])
	}
	return fm
}()

// Render expands tmpl with data and word-wraps the result.
func Render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return wordwrap.String(buf.String(), DefaultWidth), nil
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).Parse(text))
}

var statusTemplate = mustTemplate("status", `{{ title .Role }} peer {{ .Peer }} at {{ .Clock }}, driving {{ default "nothing" .Active }}
Entities:
{{- range .Entities }}
  {{ printf "%-12s" .Id }} {{ vec .Position }} owner={{ .Owner }}{{ if .Locked }} held by {{ .Holder }}{{ end }}
{{- end }}
Controllers:
{{- range .Controllers }}
  {{ printf "%-12s" .Id }} peer={{ .Peer }} {{ .Phase }}{{ if .Possessing }} in {{ .Possessing }}{{ end }}{{ if .Stunned }} (stunned){{ end }}{{ if .Local }} *{{ end }}
{{- end }}
`)

var helpTemplate = mustTemplate("help", `Commands:
{{- range . }}
  {{ printf "%-20s" .Usage }} {{ .Help }}
{{- end }}
`)

var historyTemplate = mustTemplate("history", `History of {{ .Entity }}:
{{- range .Entries }}
  {{ .At.Format "15:04:05" }} {{ printf "%-8s" .Kind }} {{ .Controller }} by {{ .Peer }}{{ if .Reason }}: {{ .Reason }}{{ end }}
{{- else }}
  nothing recorded
{{- end }}
`)
