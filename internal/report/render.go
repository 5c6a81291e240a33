package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/solatis/formatkeeper/internal/types"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Renderer writes check results.
type Renderer interface {
	Render(w io.Writer, runs []*types.CheckRun) error
}

// Options configures the renderers.
type Options struct {
	// Color enables ANSI color in text output.
	Color bool
	// Width truncates text output lines; zero disables truncation.
	Width int
}

// NewRenderer returns the renderer for format.
func NewRenderer(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatText, "":
		return newTextRenderer(opts), nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatHTML:
		return htmlRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want text, json or html)", format)
}

type jsonRenderer struct{}

type jsonReport struct {
	Summary Summary           `json:"summary"`
	Runs    []*types.CheckRun `json:"runs"`
}

func (jsonRenderer) Render(w io.Writer, runs []*types.CheckRun) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if runs == nil {
		runs = []*types.CheckRun{}
	}
	return enc.Encode(jsonReport{Summary: Summarize(runs), Runs: runs})
}
