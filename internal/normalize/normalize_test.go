package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_Empty(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("   \n\n  "))
}

func TestClean_StripsEmphasisRuns(t *testing.T) {
	assert.Equal(t, "CFR Vietnam - July prices", Clean("* CFR Vietnam* – July prices"))
	assert.Equal(t, "bold", Clean("**bold**"))
}

func TestClean_DashVariants(t *testing.T) {
	// minus sign, non-breaking hyphen, en dash, em dash
	assert.Equal(t, "639-649", Clean("639−649"))
	assert.Equal(t, "639-649", Clean("639‑649"))
	assert.Equal(t, "639-649", Clean("639–649"))
	assert.Equal(t, "639-649", Clean("639—649"))
}

func TestClean_StackedCharacterLines(t *testing.T) {
	in := strings.Join([]string{"6", "3", "9", "-", "6", "4", "9", "/", "m", "t"}, "\n")
	assert.Equal(t, "639-649/mt", Clean(in))
}

func TestClean_StackedRunInsideProse(t *testing.T) {
	in := "spot prices were US\n6\n3\n9\n-\n6\n4\n9\n/\nm\nt\nover the contract price"
	got := Clean(in)
	assert.Contains(t, got, "639-649/mt")
	assert.Contains(t, got, "spot prices were US")
	assert.Contains(t, got, "over the contract price")
}

func TestClean_ShortLinesBelowThresholdUntouched(t *testing.T) {
	// Two ultra-short lines only: must not merge.
	in := "ok\nno\nthis is a normal line"
	assert.Equal(t, "ok\nno\nthis is a normal line", Clean(in))
}

func TestClean_SpacedOutWord(t *testing.T) {
	assert.Equal(t, "carrying", Clean("c a r r y i n g"))
	// Adjacent spaced-out words join into one token; word boundaries are
	// unrecoverable once the OCR step has exploded them.
	assert.Equal(t, "carryingapremium", Clean("c a r r y i n g a p r e m i u m"))
}

func TestClean_SpacedDigits(t *testing.T) {
	assert.Equal(t, "639-649", Clean("6 3 9 - 6 4 9"))
}

func TestClean_TwoTokensNotMerged(t *testing.T) {
	assert.Equal(t, "a b", Clean("a b"))
}

func TestClean_UnitRepair(t *testing.T) {
	assert.Equal(t, "$80/mt", Clean("$  80 /  mt"))
	assert.Equal(t, "US$621-631/mt", Clean("US$ 621 - 631 / m t"))
	assert.Equal(t, "US$85-95/mt", Clean("U S $ 85 ‑ 95 / mt"))
}

func TestClean_CurrencyGluedToPrecedingWord(t *testing.T) {
	// Whitespace before $ or / is always stripped, even after prose.
	got := Clean("Propane closed at $  620 /  mt.")
	assert.Equal(t, "Propane closed at$620/mt.", got)
	assert.Equal(t, got, Clean(got))
}

func TestClean_WhitespaceNormalization(t *testing.T) {
	in := "first   line\t\there\n\n\n\n\nsecond paragraph   "
	assert.Equal(t, "first line here\n\nsecond paragraph", Clean(in))
}

func TestClean_PunctuationSpacing(t *testing.T) {
	assert.Equal(t, "steady, then firmer.", Clean("steady , then  firmer ."))
	assert.Equal(t, "(see note)", Clean("( see note )"))
}

func TestClean_KeepsSemanticContent(t *testing.T) {
	in := "Propane CFR Japan was assessed at US$ 620 / mt, butane at US$ 600 / mt."
	got := Clean(in)
	assert.Contains(t, got, "620")
	assert.Contains(t, got, "600")
	assert.Contains(t, got, "Propane CFR Japan")
	assert.Contains(t, got, "US$620/mt")
}

// The garbled excerpt that motivated the pipeline: markdown emphasis, en
// dashes, a price range rendered one character per line, and a fully
// spaced-out clause.
func TestClean_GarbledReportExcerpt(t *testing.T) {
	in := "* CFR Vietnam* – July 2nd‑half spot prices were US\n" +
		"6\n3\n9\n‑\n6\n4\n9\n \n/\n \nm\nt\n" +
		",\nc\na\nr\nr\ny\ni\nn\ng\n" +
		"US $621‑631 / mt with the same premium range."

	got := Clean(in)
	assert.Contains(t, got, "639-649/mt")
	assert.Contains(t, got, "carrying")
	assert.Contains(t, got, "US$621-631/mt")
	assert.NotContains(t, got, "*")
	assert.NotContains(t, got, "‑")
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain sentence with nothing to fix.",
		"* CFR Vietnam* – prices were US$ 639 ‑ 649 /  mt , c a r r y i n g a premium",
		"6\n3\n9\n-\n6\n4\n9\n/\nm\nt",
		"first   line\n\n\n\nsecond ( spaced )  line .",
		"U S $ 85 - 95 / m t over July CP",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "not idempotent for %q", in)
	}
}

func TestClean_ConfigurableRunThreshold(t *testing.T) {
	c := New(Options{MinRun: 2})
	// With a threshold of 2 even a two-line run collapses.
	assert.Equal(t, "ab", c.Clean("a\nb"))
	// Default keeps it.
	assert.Equal(t, "a\nb", Clean("a\nb"))
}
