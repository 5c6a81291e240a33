package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/solatis/formatkeeper/internal/types"
)

func sampleRuns() []*types.CheckRun {
	return []*types.CheckRun{
		{
			ID:       "0190a0c4-0000-7000-8000-000000000001",
			Document: "thesis.docx",
			Blocks: []types.ParagraphErrorBlock{
				{
					ParaIndex: types.DocumentLevel,
					StyleName: "",
					Details: []types.Diagnostic{
						{Category: types.CategorySection, RuleKey: "left_margin_cm", Expected: "3.17 cm", Actual: "2.50 cm"},
					},
				},
				{
					ParaIndex: 0,
					StyleName: "Normal",
					Snippet:   "测试test <b>",
					FullText:  "测试test <b>",
					Details: []types.Diagnostic{
						{
							Category: types.CategorySpacing,
							RuleKey:  "require_space_between_cn_en (cn->en)",
							Expected: "space required",
							Actual:   "no space",
							Location: &types.Location{Start: 1, End: 3},
						},
						{
							Category: types.CategoryFont,
							RuleKey:  "font_size_pt",
							Expected: "12.0 pt",
							Actual:   "11.0 pt",
							RunIndex: intp(0),
							RunText:  "测试test",
							Location: &types.Location{Start: 0, End: 6},
						},
					},
				},
			},
		},
		{Document: "clean.docx", Blocks: []types.ParagraphErrorBlock{}},
	}
}

func render(t *testing.T, format Format) string {
	t.Helper()
	r, err := NewRenderer(format, Options{})
	if err != nil {
		t.Fatalf("NewRenderer(%s) error = %v", format, err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleRuns()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestRenderText(t *testing.T) {
	out := render(t, FormatText)
	for _, want := range []string{
		"==> thesis.docx",
		"[document]",
		`paragraph 1 style "Normal"`,
		"[spacing] require_space_between_cn_en (cn->en)",
		"expected: 12.0 pt",
		"actual:   11.0 pt",
		`run 1: "测试test"`,
		"at [1,3): 测试test <b>",
		"==> clean.docx",
		"no formatting problems found",
		"2 document(s) checked, 3 diagnostic(s) in 2 block(s) (font=1, section=1, spacing=1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("text output contains ANSI escapes with color disabled")
	}
}

func TestRenderJSON(t *testing.T) {
	out := render(t, FormatJSON)
	var got struct {
		Summary Summary           `json:"summary"`
		Runs    []*types.CheckRun `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Summary.Diagnostics != 3 || len(got.Runs) != 2 {
		t.Errorf("summary = %+v, runs = %d", got.Summary, len(got.Runs))
	}
	if !strings.Contains(out, `"para_idx": -1`) || !strings.Contains(out, `"rule_key": "font_size_pt"`) {
		t.Errorf("JSON output missing stable field names:\n%s", out)
	}
	if !strings.Contains(out, "<b>") {
		t.Error("JSON output escaped HTML characters")
	}
}

func TestRenderHTML(t *testing.T) {
	out := render(t, FormatHTML)
	for _, want := range []string{
		"<mark>试t</mark>",
		"Paragraph 1",
		"&lt;b&gt;",
		"No formatting problems found.",
		"run 1: 测试test",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML output missing %q", want)
		}
	}
	if strings.Contains(out, "test <b>") {
		t.Error("HTML output contains unescaped document text")
	}
}

func TestNewRenderer_UnknownFormat(t *testing.T) {
	if _, err := NewRenderer("pdf", Options{}); err == nil {
		t.Error("NewRenderer(pdf) error = nil")
	}
}

func TestTextTruncate(t *testing.T) {
	r := newTextRenderer(Options{Width: 10})
	if got := r.truncate("中文中文中文中文", 0); len([]rune(got)) >= 8 {
		t.Errorf("truncate() = %q, want shortened", got)
	}
	if got := r.truncate("short", 0); got != "short" {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
}
