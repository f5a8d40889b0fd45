// Package normalize repairs OCR and rendering defects in report text and
// LLM answers: characters emitted one per line, letters spaced apart,
// broken currency/unit tokens, ragged whitespace. Clean is a pure function
// and applying it to its own output is a no-op.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Options tunes the cleanup heuristics.
type Options struct {
	// MinRun is the minimum number of consecutive ultra-short lines (or
	// space-separated single characters) that triggers a collapse. The
	// default is 3; 2 is too eager and merges ordinary short words.
	MinRun int
}

// Cleaner applies the normalization passes in a fixed order.
type Cleaner struct {
	minRun    int
	spacedRun *regexp.Regexp
}

// New builds a Cleaner. A zero Options selects the defaults.
func New(opts Options) *Cleaner {
	minRun := opts.MinRun
	if minRun < 2 {
		minRun = 3
	}
	return &Cleaner{
		minRun: minRun,
		// Single letters or digits separated by single spaces,
		// minRun tokens or more.
		spacedRun: regexp.MustCompile(fmt.Sprintf(
			`\b[0-9A-Za-z](?: [0-9A-Za-z]){%d,}\b`, minRun-1)),
	}
}

var defaultCleaner = New(Options{})

// Clean runs the full pipeline with default options.
func Clean(text string) string {
	return defaultCleaner.Clean(text)
}

// Clean converts a raw text blob into a display-ready string. Passes run
// strictly in order, each on the output of the previous. Malformed or empty
// input yields the empty string, never an error.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = stripDecoration(text)
	text = normalizeDashes(text)
	text = c.collapseStackedLines(text)
	text = c.collapseSpacedRuns(text)
	text = repairUnits(text)
	text = normalizeWhitespace(text)
	text = spacePunctuation(text)
	return text
}

// Emphasis markers survive markdown stripping upstream as bare asterisk runs.
var decorationRe = regexp.MustCompile(`\*+`)

func stripDecoration(s string) string {
	return decorationRe.ReplaceAllString(s, "")
}

// PDF extraction emits several Unicode dash variants where the source used a
// plain hyphen: minus sign, non-breaking hyphen, en dash, em dash.
var dashMapper = runes.Map(func(r rune) rune {
	switch r {
	case '−', '‑', '–', '—':
		return '-'
	}
	return r
})

func normalizeDashes(s string) string {
	out, _, err := transform.String(dashMapper, s)
	if err != nil {
		return s
	}
	return out
}

// collapseStackedLines joins runs of minRun or more consecutive lines that
// each hold at most two characters, with no separator. The PDF renderer
// sometimes emits price/unit sequences one character per line; ordinary
// short words never appear as long single-character line runs, so anything
// below the threshold passes through untouched.
func (c *Cleaner) collapseStackedLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string

	for i := 0; i < len(lines); {
		if !isStackedFragment(strings.TrimSpace(lines[i])) {
			out = append(out, lines[i])
			i++
			continue
		}

		var frags []string
		singleRuneOnly := true
		last := i
		j := i
		for j < len(lines) {
			frag := strings.TrimSpace(lines[j])
			if frag == "" {
				// Whitespace-only lines continue a run only while
				// it is made of lone characters; the renderer emits
				// those separator lines inside the same defect.
				if len(frags) == 0 || !singleRuneOnly {
					break
				}
				j++
				continue
			}
			if !isStackedFragment(frag) {
				break
			}
			if len([]rune(frag)) > 1 {
				singleRuneOnly = false
			}
			frags = append(frags, frag)
			last = j
			j++
		}

		if len(frags) >= c.minRun {
			out = append(out, strings.Join(frags, ""))
			// Blank lines after the last fragment separate the run
			// from following prose; keep them.
			out = append(out, lines[last+1:j]...)
		} else {
			out = append(out, lines[i:j]...)
		}
		i = j
	}

	return strings.Join(out, "\n")
}

// isStackedFragment reports whether a trimmed line looks like a single
// character (or two) spilled from a stacked rendering run.
func isStackedFragment(s string) bool {
	if s == "" || strings.ContainsRune(s, ' ') {
		return false
	}
	return len([]rune(s)) <= 2
}

// collapseSpacedRuns rejoins words and numbers that an OCR step exploded
// into space-separated single characters ("c a r r y i n g", "6 3 9").
func (c *Cleaner) collapseSpacedRuns(s string) string {
	return c.spacedRun.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
}

// Unit and currency repair. Horizontal whitespace only: vertical layout was
// already handled by the stacked-line pass.
var (
	afterSlashDollarRe  = regexp.MustCompile(`([/$])[ \t]+`)
	beforeSlashDollarRe = regexp.MustCompile(`[ \t]+([/$])`)
	perTonneRe          = regexp.MustCompile(`(?i)/\s*m\s*t\b`)
	usDollarRe          = regexp.MustCompile(`\bU\s?S\s?\$`)
	numberRangeRe       = regexp.MustCompile(`(\d+)[ \t]*-[ \t]*(\d+)`)
)

func repairUnits(s string) string {
	s = usDollarRe.ReplaceAllString(s, "US$")
	s = afterSlashDollarRe.ReplaceAllString(s, "$1")
	s = beforeSlashDollarRe.ReplaceAllString(s, "$1")
	s = perTonneRe.ReplaceAllString(s, "/mt")
	s = numberRangeRe.ReplaceAllString(s, "$1-$2")
	return s
}

var (
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	lineEdgeRe   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

func normalizeWhitespace(s string) string {
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var (
	beforeCloseRe = regexp.MustCompile(`[ \t]+([,;:.!?)])`)
	afterOpenRe   = regexp.MustCompile(`\([ \t]+`)
	afterPunctRe  = regexp.MustCompile(`([,;:.!?])[ \t]+`)
)

func spacePunctuation(s string) string {
	s = beforeCloseRe.ReplaceAllString(s, "$1")
	s = afterOpenRe.ReplaceAllString(s, "(")
	s = afterPunctRe.ReplaceAllString(s, "$1 ")
	return s
}
