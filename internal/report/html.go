package report

import (
	"embed"
	"html/template"
	"io"

	"github.com/solatis/formatkeeper/internal/types"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"deref": func(p *int) int { return *p },
	"excerpt": func(text string, loc *types.Location) *Excerpt {
		ex, ok := Highlight(text, loc)
		if !ok {
			return nil
		}
		return &ex
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type htmlRenderer struct{}

func (htmlRenderer) Render(w io.Writer, runs []*types.CheckRun) error {
	return reportTemplate.Execute(w, struct {
		Summary Summary
		Runs    []*types.CheckRun
	}{Summarize(runs), runs})
}
