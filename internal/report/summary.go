package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

// Summary counts the results of one or more check runs.
type Summary struct {
	Documents   int                    `json:"documents"`
	Blocks      int                    `json:"blocks"`
	Diagnostics int                    `json:"diagnostics"`
	ByCategory  map[types.Category]int `json:"by_category"`
}

// Summarize counts blocks and diagnostics across runs.
func Summarize(runs []*types.CheckRun) Summary {
	s := Summary{Documents: len(runs), ByCategory: map[types.Category]int{}}
	for _, r := range runs {
		s.Blocks += len(r.Blocks)
		for _, b := range r.Blocks {
			for _, d := range b.Details {
				s.Diagnostics++
				s.ByCategory[d.Category]++
			}
		}
	}
	return s
}

// String renders a one-line summary, categories in name order.
func (s Summary) String() string {
	if s.Diagnostics == 0 {
		return fmt.Sprintf("%d document(s) checked, no formatting problems found", s.Documents)
	}
	cats := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = fmt.Sprintf("%s=%d", c, s.ByCategory[types.Category(c)])
	}
	return fmt.Sprintf("%d document(s) checked, %d diagnostic(s) in %d block(s) (%s)",
		s.Documents, s.Diagnostics, s.Blocks, strings.Join(parts, ", "))
}
