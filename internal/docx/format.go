package docx

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/solatis/formatkeeper/internal/types"
)

// Length is a signed distance in twips (1/20 pt).
type Length int32

const (
	twipsPerPoint = 20.0
	pointsPerCm   = 72.0 / 2.54
)

// Points converts l to points.
func (l Length) Points() float64 { return float64(l) / twipsPerPoint }

// Centimeters converts l to centimeters.
func (l Length) Centimeters() float64 { return l.Points() / pointsPerCm }

// FromPoints converts points to the nearest Length.
func FromPoints(pt float64) Length {
	return Length(math.Round(pt * twipsPerPoint))
}

// Alignment is a paragraph justification.
type Alignment uint8

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
	AlignDistribute
)

var alignmentNames = [...]string{"left", "center", "right", "justify", "distribute"}

func (a Alignment) String() string {
	if int(a) < len(alignmentNames) {
		return alignmentNames[a]
	}
	return "unknown"
}

// ParseAlignment maps a rule keyword to an Alignment.
func ParseAlignment(s string) (Alignment, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range alignmentNames {
		if s == name {
			return Alignment(i), true
		}
	}
	return 0, false
}

// jcAlignment maps w:jc values, including the strict start/end spellings.
var jcAlignment = map[string]Alignment{
	"left":           AlignLeft,
	"start":          AlignLeft,
	"center":         AlignCenter,
	"right":          AlignRight,
	"end":            AlignRight,
	"both":           AlignJustify,
	"lowKashida":     AlignJustify,
	"mediumKashida":  AlignJustify,
	"highKashida":    AlignJustify,
	"distribute":     AlignDistribute,
	"thaiDistribute": AlignDistribute,
}

// LineRule is the w:lineRule of a paragraph.
type LineRule uint8

const (
	LineAuto LineRule = iota
	LineExact
	LineAtLeast
)

// LineSpacing is the raw w:spacing line pair. Line is in 240ths of a line
// for LineAuto, and in twips otherwise.
type LineSpacing struct {
	Rule LineRule
	Line int32
}

// ParagraphFormat is the partial paragraph formatting of one cascade level.
type ParagraphFormat struct {
	Alignment       types.Opt[Alignment]
	FirstLineIndent types.Opt[Length]
	LeftIndent      types.Opt[Length]
	RightIndent     types.Opt[Length]
	SpaceBefore     types.Opt[Length]
	SpaceAfter      types.Opt[Length]
	LineSpacing     types.Opt[LineSpacing]
	KeepWithNext    types.Opt[bool]
	KeepTogether    types.Opt[bool]
	WidowControl    types.Opt[bool]
	PageBreakBefore types.Opt[bool]
}

// FontSlots holds the four w:rFonts slots.
type FontSlots struct {
	ASCII         types.Opt[string]
	HighANSI      types.Opt[string]
	EastAsia      types.Opt[string]
	ComplexScript types.Opt[string]
}

// RunFormat is the partial run formatting of one cascade level.
// Size is in points.
type RunFormat struct {
	Fonts  FontSlots
	Size   types.Opt[float64]
	SizeCS types.Opt[float64]
	Bold   types.Opt[bool]
	Italic types.Opt[bool]
}

// Defaults is the document-wide w:docDefaults formatting.
type Defaults struct {
	Paragraph ParagraphFormat
	Run       RunFormat
}

// parseOnOff applies ST_OnOff semantics: a missing val means on.
func parseOnOff(n *Node) (bool, error) {
	v, ok := n.Val()
	if !ok {
		return true, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "true", "on":
		return true, nil
	case "0", "false", "off", "none":
		return false, nil
	}
	return false, fmt.Errorf("%w: on/off value %q", types.ErrCoercionFailed, v)
}

var measureUnits = map[string]float64{
	"pt": twipsPerPoint,
	"pc": 12 * twipsPerPoint,
	"pi": 12 * twipsPerPoint,
	"in": 72 * twipsPerPoint,
	"cm": pointsPerCm * twipsPerPoint,
	"mm": pointsPerCm / 10 * twipsPerPoint,
}

// ParseTwips reads a twips count or a universal measure such as "2.5cm".
func ParseTwips(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		v, err := safecast.Conv[int32](n)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", types.ErrCoercionFailed, err)
		}
		return Length(v), nil
	}
	if len(s) > 2 {
		if factor, ok := measureUnits[s[len(s)-2:]]; ok {
			f, err := strconv.ParseFloat(s[:len(s)-2], 64)
			if err == nil {
				v, err := safecast.Round[int32](f * factor)
				if err != nil {
					return 0, fmt.Errorf("%w: %v", types.ErrCoercionFailed, err)
				}
				return Length(v), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: length %q", types.ErrCoercionFailed, s)
}

// ParseHalfPoints reads a w:sz value and returns points.
func ParseHalfPoints(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		v, err := safecast.Conv[uint16](n)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", types.ErrCoercionFailed, err)
		}
		return float64(v) / 2, nil
	}
	if strings.HasSuffix(s, "pt") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "pt"), 64)
		if err == nil && f >= 0 {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: font size %q", types.ErrCoercionFailed, s)
}
