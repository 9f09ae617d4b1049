package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Cake Production Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #4CAF50; color: white; }
tr:nth-child(even) { background-color: #f2f2f2; }
.summary { background-color: #e7f3e7; padding: 15px; margin: 20px 0; border-radius: 5px; }
.total { font-size: 1.2em; font-weight: bold; color: #4CAF50; }
</style>
</head>
<body>
<h1>Cake Production Report</h1>
<div class="summary">
<p><strong>Report Generated:</strong> {{.Generated}}</p>
<p><strong>Period:</strong> {{.Start}} to {{.End}}</p>
<p><strong>Total Orders:</strong> {{.Orders}}</p>
<p class="total">TOTAL CAKES TO PRODUCE: {{.Total}} cakes</p>
{{if gt .Buffer 0}}<p><em>(Includes {{.Buffer}}% safety buffer)</em></p>{{end}}
</div>
<h2>Production Requirements</h2>
<table>
<tr><th>Cake Type</th><th>Quantity</th></tr>
{{range .Lines}}<tr><td>{{.Product}}</td><td>{{.Quantity}}</td></tr>
{{else}}<tr><td colspan="2">No cakes to produce this period.</td></tr>
{{end}}</table>
</body>
</html>
`))

type htmlData struct {
	Generated string
	Start     string
	End       string
	Orders    int
	Total     int
	Buffer    int
	Lines     []Line
}

// renderHTML escapes product names, which come straight from order input.
func (a *Agent) renderHTML(lines []Line, orders []Order, start, end time.Time, total int) (string, error) {
	var b strings.Builder
	err := htmlReport.Execute(&b, htmlData{
		Generated: a.now().UTC().Format("2006-01-02 15:04"),
		Start:     start.Format(dateLayout),
		End:       end.Format(dateLayout),
		Orders:    len(orders),
		Total:     total,
		Buffer:    a.buffer,
		Lines:     lines,
	})
	if err != nil {
		return "", fmt.Errorf("%w: render html report: %v", contractx.ErrFormat, err)
	}
	return b.String(), nil
}
