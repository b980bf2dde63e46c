package printing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PrintSettingsFlag is the optional prefix of a print setting string
const PrintSettingsFlag = "-print-settings"

// MaxCopies bounds the repeat count of a single submission
const MaxCopies = 999

// PrintOptions is one print request. It is consumed immediately and never stored.
type PrintOptions struct {
	// ID tracks the request and names the destination printer. Empty selects
	// the system default printer.
	ID               string `json:"id"`
	Path             string `json:"path"`
	PrintSetting     string `json:"print_setting"`
	RemoveAfterPrint bool   `json:"remove_after_print"`
}

// PrinterName returns ID with surrounding whitespace and double quotes removed
func (o PrintOptions) PrinterName() string {
	return strings.Trim(strings.TrimSpace(o.ID), `"`)
}

var (
	pageTokenPattern   = regexp.MustCompile(`^[0-9]+$`)
	rangeTokenPattern  = regexp.MustCompile(`^([0-9]+)-([0-9]+)$`)
	repeatTokenPattern = regexp.MustCompile(`^([0-9]+)x$`)
)

// PageRange is a normalized page selection such as "1,3,5" or "2-7".
// The zero value selects every page.
type PageRange struct {
	parts []pagePart
}

type pagePart struct {
	from, to int
}

// IsAll reports whether the range selects every page
func (r PageRange) IsAll() bool {
	return len(r.parts) == 0
}

// MaxPage returns the highest page the range refers to, or 0 for all pages
func (r PageRange) MaxPage() int {
	maxPage := 0
	for _, p := range r.parts {
		if p.to > maxPage {
			maxPage = p.to
		}
	}
	return maxPage
}

// String renders the range in the comma/dash form native tools accept
func (r PageRange) String() string {
	tokens := make([]string, 0, len(r.parts))
	for _, p := range r.parts {
		if p.from == p.to {
			tokens = append(tokens, strconv.Itoa(p.from))
		} else {
			tokens = append(tokens, fmt.Sprintf("%d-%d", p.from, p.to))
		}
	}
	return strings.Join(tokens, ",")
}

// ParsePageRange parses "1,3,5", "1,3," or "2-7". An empty string selects all pages.
func ParsePageRange(s string) (PageRange, error) {
	var r PageRange
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if err := r.add(tok); err != nil {
			return PageRange{}, err
		}
	}
	return r, nil
}

func (r *PageRange) add(tok string) error {
	if pageTokenPattern.MatchString(tok) {
		n, _ := strconv.Atoi(tok)
		if n < 1 {
			return fmt.Errorf("page %q must be at least 1", tok)
		}
		r.parts = append(r.parts, pagePart{from: n, to: n})
		return nil
	}
	if m := rangeTokenPattern.FindStringSubmatch(tok); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if from < 1 || to < from {
			return fmt.Errorf("page range %q is empty", tok)
		}
		r.parts = append(r.parts, pagePart{from: from, to: to})
		return nil
	}
	return fmt.Errorf("invalid page range %q", tok)
}

// PrintSettings is the structured form of a print setting string:
// "-print-settings {range},{paper},{method},{scale},{orientation},{color},{N}x".
type PrintSettings struct {
	Range       PageRange
	Paper       PaperSize
	Method      DuplexMethod
	Scale       ScaleMode
	Orientation Orientation
	Color       ColorMode
	Copies      int
}

// DefaultPrintSettings returns A4, simplex, noscale, portrait, color, one copy
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{
		Paper:       PaperSizeA4,
		Method:      DuplexSimplex,
		Scale:       ScaleNone,
		Orientation: OrientationPortrait,
		Color:       ColorModeColor,
		Copies:      1,
	}
}

// ParsePrintSettings parses a print setting string. Every field is optional and
// recognized by its vocabulary, so "A4,duplex" and ",A4,duplex,noscale,portrait,color,1x"
// are both accepted. Invalid settings are reported as device errors because the
// print pipeline would reject them.
func ParsePrintSettings(s string) (PrintSettings, error) {
	ps := DefaultPrintSettings()
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, PrintSettingsFlag))
	if s == "" {
		return ps, nil
	}

	seen := make(map[string]bool)
	once := func(field, tok string) error {
		if seen[field] {
			return invalidSetting(s, "duplicate %s %q", field, tok)
		}
		seen[field] = true
		return nil
	}

	for _, raw := range strings.Split(s, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)

		switch {
		case pageTokenPattern.MatchString(tok) || rangeTokenPattern.MatchString(tok):
			if err := ps.Range.add(tok); err != nil {
				return PrintSettings{}, invalidSetting(s, "%v", err)
			}
		case repeatTokenPattern.MatchString(lower):
			if err := once("repeat", tok); err != nil {
				return PrintSettings{}, err
			}
			n, _ := strconv.Atoi(repeatTokenPattern.FindStringSubmatch(lower)[1])
			if n < 1 || n > MaxCopies {
				return PrintSettings{}, invalidSetting(s, "repeat must be between 1 and %d", MaxCopies)
			}
			ps.Copies = n
		case DuplexMethod(lower).IsValid():
			if err := once("method", tok); err != nil {
				return PrintSettings{}, err
			}
			ps.Method = DuplexMethod(lower)
		case ScaleMode(lower).IsValid():
			if err := once("scale", tok); err != nil {
				return PrintSettings{}, err
			}
			ps.Scale = ScaleMode(lower)
		case Orientation(lower).IsValid():
			if err := once("orientation", tok); err != nil {
				return PrintSettings{}, err
			}
			ps.Orientation = Orientation(lower)
		case ColorMode(lower).IsValid():
			if err := once("color", tok); err != nil {
				return PrintSettings{}, err
			}
			ps.Color = ColorMode(lower)
		default:
			paper, ok := ParsePaperSize(strings.TrimPrefix(lower, "paper="))
			if !ok {
				return PrintSettings{}, invalidSetting(s, "unknown token %q", tok)
			}
			if err := once("paper", tok); err != nil {
				return PrintSettings{}, err
			}
			ps.Paper = paper
		}
	}
	return ps, nil
}

func invalidSetting(setting, format string, args ...any) error {
	return NewDeviceError(nil, "invalid print setting %q: %s", setting, fmt.Sprintf(format, args...))
}

// String renders the canonical print setting string
func (ps PrintSettings) String() string {
	return fmt.Sprintf("%s %s,%s,%s,%s,%s,%s,%dx", PrintSettingsFlag,
		ps.Range.String(), ps.Paper, ps.Method, ps.Scale, ps.Orientation, ps.Color, ps.Copies)
}

// SumatraArg renders the value of SumatraPDF's -print-settings argument
func (ps PrintSettings) SumatraArg() string {
	tokens := make([]string, 0, 7)
	if !ps.Range.IsAll() {
		tokens = append(tokens, ps.Range.String())
	}
	tokens = append(tokens,
		"paper="+string(ps.Paper),
		string(ps.Method),
		string(ps.Scale),
		string(ps.Orientation),
		string(ps.Color),
		fmt.Sprintf("%dx", ps.Copies),
	)
	return strings.Join(tokens, ",")
}

// LPOptions renders the settings as CUPS lp arguments
func (ps PrintSettings) LPOptions() []string {
	args := []string{
		"-n", strconv.Itoa(ps.Copies),
		"-o", "media=" + ps.Paper.CUPSMedia(),
		"-o", "sides=" + ps.Method.CUPSSides(),
	}
	if ps.Orientation == OrientationLandscape {
		args = append(args, "-o", "orientation-requested=4")
	} else {
		args = append(args, "-o", "orientation-requested=3")
	}
	args = append(args, "-o", "print-color-mode="+string(ps.Color))
	switch ps.Scale {
	case ScaleFit:
		args = append(args, "-o", "print-scaling=fit")
	case ScaleShrink:
		args = append(args, "-o", "print-scaling=auto-fit")
	default:
		args = append(args, "-o", "print-scaling=none")
	}
	if !ps.Range.IsAll() {
		args = append(args, "-P", ps.Range.String())
	}
	return args
}
