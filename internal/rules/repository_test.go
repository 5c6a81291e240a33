package rules

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/formatkeeper/internal/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustCompile(t *testing.T, raw map[string]any) *types.RuleSpec {
	t.Helper()
	spec, err := Compile(raw)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return spec
}

func TestRepository_EffectiveCascade(t *testing.T) {
	spec := mustCompile(t, map[string]any{
		"fonts":   map[string]any{"font_size_pt": 12, "bold": false},
		"section": map[string]any{"left_margin_cm": 3},
		"paragraph": map[string]any{
			"A": map[string]any{"font_size_pt": 14, "space_after_pt": 6, "alignment": "left"},
			"B": map[string]any{"based_on": "A", "font_size_pt": 16, "alignment": "center"},
			"C": map[string]any{"based_on": "B", "bold": true},
		},
	})
	repo := NewRepository(spec, Options{Logger: quietLogger()})

	rs := repo.Effective("C")
	tests := []struct {
		key  string
		want any
	}{
		{AttrBold, true},          // C overrides fonts
		{AttrFontSize, 16.0},      // B overrides A overrides fonts
		{AttrAlignment, "center"}, // B overrides A
		{AttrSpaceAfter, 6.0},     // inherited from A
		{AttrLeftMargin, 3.0},     // global section
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := rs[tt.key]; got != tt.want {
				t.Errorf("Effective(C)[%s] = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRepository_UnmappedStyleGetsGlobals(t *testing.T) {
	spec := mustCompile(t, map[string]any{
		"fonts":     map[string]any{"font_size_pt": 12},
		"paragraph": map[string]any{"A": map[string]any{"bold": true}},
	})
	repo := NewRepository(spec, Options{Logger: quietLogger()})

	rs := repo.Effective("Caption")
	if len(rs) != 1 || rs[AttrFontSize] != 12.0 {
		t.Errorf("Effective(Caption) = %v, want only the global font size", rs)
	}
	if _, ok := repo.Canonical("Caption"); ok {
		t.Error("Canonical(Caption) should not resolve")
	}
}

func TestRepository_EmptySpecYieldsEmptySet(t *testing.T) {
	repo := NewRepository(mustCompile(t, map[string]any{}), Options{Logger: quietLogger()})
	if rs := repo.Effective("Normal"); len(rs) != 0 {
		t.Errorf("Effective(Normal) = %v, want empty", rs)
	}
}

func TestRepository_Canonical(t *testing.T) {
	tests := []struct {
		name         string
		paragraph    map[string]any
		configured   string
		style        string
		want         string
		wantResolved bool
	}{
		{
			name:         "exact name",
			paragraph:    map[string]any{"标题1": map[string]any{}},
			style:        "标题1",
			want:         "标题1",
			wantResolved: true,
		},
		{
			name:         "alias",
			paragraph:    map[string]any{"标题1": map[string]any{"aliases": []any{"Heading 1"}}},
			style:        "Heading 1",
			want:         "标题1",
			wantResolved: true,
		},
		{
			name:         "Normal substitutes is_default style",
			paragraph:    map[string]any{"Body": map[string]any{"is_default": true}},
			style:        "Normal",
			want:         "Body",
			wantResolved: true,
		},
		{
			name:         "正文 substitutes configured default",
			paragraph:    map[string]any{"Thesis": map[string]any{}},
			configured:   "Thesis",
			style:        "正文",
			want:         "Thesis",
			wantResolved: true,
		},
		{
			name:         "fallback to 论文正文",
			paragraph:    map[string]any{"论文正文": map[string]any{}},
			style:        "Normal",
			want:         "论文正文",
			wantResolved: true,
		},
		{
			name:         "Normal rule wins over substitution",
			paragraph:    map[string]any{"Normal": map[string]any{}, "Body": map[string]any{"is_default": true}},
			style:        "Normal",
			want:         "Normal",
			wantResolved: true,
		},
		{
			name:      "no default available",
			paragraph: map[string]any{"A": map[string]any{}},
			style:     "Normal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := mustCompile(t, map[string]any{"paragraph": tt.paragraph})
			repo := NewRepository(spec, Options{DefaultStyle: tt.configured, Logger: quietLogger()})
			got, ok := repo.Canonical(tt.style)
			if ok != tt.wantResolved || got != tt.want {
				t.Errorf("Canonical(%q) = (%q, %v), want (%q, %v)", tt.style, got, ok, tt.want, tt.wantResolved)
			}
		})
	}
}

func TestRepository_ChainWarnings(t *testing.T) {
	spec := mustCompile(t, map[string]any{
		"paragraph": map[string]any{
			"A": map[string]any{"based_on": "B", "font_size_pt": 10},
			"B": map[string]any{"based_on": "A", "bold": true},
			"C": map[string]any{"based_on": "Missing", "italic": true},
		},
	})
	repo := NewRepository(spec, Options{Logger: quietLogger()})

	var cycles, missing int
	for _, w := range repo.Warnings() {
		switch {
		case errors.Is(w, types.ErrStyleCycle):
			cycles++
		case errors.Is(w, types.ErrMissingBaseStyle):
			missing++
		}
	}
	if cycles != 2 || missing != 1 {
		t.Errorf("warnings = %v, want 2 cycles and 1 missing base", repo.Warnings())
	}

	rs := repo.Effective("A")
	if rs[AttrFontSize] != 10.0 || rs[AttrBold] != true {
		t.Errorf("Effective(A) = %v, want values from both cycle members", rs)
	}
	if rs := repo.Effective("C"); rs[AttrItalic] != true {
		t.Errorf("Effective(C) = %v, want own attributes despite missing base", rs)
	}
}

func TestRepository_Fingerprint(t *testing.T) {
	raw := func() map[string]any {
		return map[string]any{
			"fonts":     map[string]any{"font_size_pt": 12, "chinese_font": "宋体"},
			"paragraph": map[string]any{"A": map[string]any{"bold": true}},
		}
	}
	a := NewRepository(mustCompile(t, raw()), Options{Logger: quietLogger()})
	b := NewRepository(mustCompile(t, raw()), Options{Logger: quietLogger()})
	if a.Fingerprint() == "" || a.Fingerprint() != b.Fingerprint() {
		t.Errorf("fingerprints differ for equal specs: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}

	changed := raw()
	changed["fonts"].(map[string]any)["font_size_pt"] = 10.5
	c := NewRepository(mustCompile(t, changed), Options{Logger: quietLogger()})
	if c.Fingerprint() == a.Fingerprint() {
		t.Error("fingerprint unchanged after editing a value")
	}
}

func TestRepository_FingerprintIncludesDefaultStyle(t *testing.T) {
	spec := mustCompile(t, map[string]any{
		"paragraph": map[string]any{
			"Body A": map[string]any{"font_size_pt": 12},
			"Body B": map[string]any{"font_size_pt": 11},
		},
	})
	a := NewRepository(spec, Options{DefaultStyle: "Body A", Logger: quietLogger()})
	b := NewRepository(spec, Options{DefaultStyle: "Body B", Logger: quietLogger()})
	if a.DefaultStyle() != "Body A" || b.DefaultStyle() != "Body B" {
		t.Fatalf("DefaultStyle() = %q, %q, want Body A, Body B", a.DefaultStyle(), b.DefaultStyle())
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint() equal for repositories with different default styles")
	}

	again := NewRepository(spec, Options{DefaultStyle: "Body A", Logger: quietLogger()})
	if again.Fingerprint() != a.Fingerprint() {
		t.Errorf("Fingerprint() = %q, want %q for the same default style", again.Fingerprint(), a.Fingerprint())
	}
}

func TestRepository_ConcurrentEffective(t *testing.T) {
	spec := mustCompile(t, map[string]any{
		"paragraph": map[string]any{
			"A": map[string]any{"font_size_pt": 12},
			"B": map[string]any{"based_on": "A"},
		},
	})
	repo := NewRepository(spec, Options{Logger: quietLogger()})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"A", "B", "Other"}[i%3]
			_ = repo.Effective(name)
		}(i)
	}
	wg.Wait()

	if got := repo.Effective("B")[AttrFontSize]; got != 12.0 {
		t.Errorf("Effective(B) font size = %v, want 12", got)
	}
}

// genChainSpec builds n styles S0..S(n-1) where each is based on the style
// at links[i] (modulo n, or none when negative) so cycles are common.
func genChainSpec(n int, links []int) map[string]any {
	paragraph := map[string]any{}
	for i := 0; i < n; i++ {
		body := map[string]any{"font_size_pt": float64(i + 8)}
		if i < len(links) && links[i] >= 0 {
			body["based_on"] = fmt.Sprintf("S%d", links[i]%n)
		}
		paragraph[fmt.Sprintf("S%d", i)] = body
	}
	return map[string]any{"paragraph": paragraph}
}

func TestRepository_CycleSafetyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("effective computation terminates and keeps own attributes", prop.ForAll(
		func(n int, links []int) bool {
			spec, err := Compile(genChainSpec(n, links))
			if err != nil {
				return false
			}
			repo := NewRepository(spec, Options{Logger: quietLogger()})
			for i := 0; i < n; i++ {
				rs := repo.Effective(fmt.Sprintf("S%d", i))
				if rs[AttrFontSize] != float64(i+8) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(-1, 20)),
	))

	properties.TestingRun(t)
}
