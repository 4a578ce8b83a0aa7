package report

import (
	"fmt"
	"html/template"
	"os"

	"github.com/berylliumsec/eclipse-go/ner"
)

// reportTemplate lists every input line; flagged lines are colored red and
// debug mode adds the label and confidence annotation.
const reportTemplate = `<html><body>
{{- range .Results}}
{{if .Flagged}}<span style='color: red;'>{{.Text}}</span>{{else}}{{.Text}}{{end}}{{if $.Debug}} <small>(Label: {{.Label}}, Avg. Conf.: {{printf "%.2f" .Confidence}})</small>{{end}}<br>
{{- end}}
</body></html>
`

var htmlTemplate = template.Must(template.New("report").Parse(reportTemplate))

// WriteHTML renders the results to an HTML file at path.
func WriteHTML(path string, results []ner.LineResult, debug bool) error {
	out, err := os.Create(path) // #nosec G304 - output path is supplied by the operator
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	data := struct {
		Results []ner.LineResult
		Debug   bool
	}{Results: results, Debug: debug}

	execErr := htmlTemplate.Execute(out, data)
	closeErr := out.Close()
	if execErr != nil {
		return fmt.Errorf("failed to render report: %w", execErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finish report file: %w", closeErr)
	}
	return nil
}
