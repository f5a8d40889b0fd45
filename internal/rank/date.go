// Package rank resolves document dates for retrieved passages and reorders
// them newest-first before they are handed to answer synthesis.
package rank

import (
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/model"
)

// DocumentMetadata is the structured stamp recovered from a report's inline
// marker, e.g. "★NO.5788 Jun 10 2025".
type DocumentMetadata struct {
	SequenceNumber int
	CreationDate   time.Time
}

// Report pages carry a serial stamp on the masthead: a star glyph, "NO.",
// the issue number, then an English month, day and 4-digit year. Only the
// first occurrence in a passage counts.
var markerRe = regexp.MustCompile(`★\s*NO\.(\d+)\s+([A-Za-z]{3,9})\s+(\d{1,2})\s+(\d{4})`)

// Uploaded report filenames encode the issue date: lpgYYMMDD.pdf.
var filenameRe = regexp.MustCompile(`(?i)^lpg(\d{2})(\d{2})(\d{2})\.pdf$`)

// Layouts accepted for a creation_date metadata value. The dd/mm/yyyy form
// matches what the upstream PDF metadata extractor writes.
var metadataDateLayouts = []string{"2006-01-02", "02/01/2006", "Jan 2 2006"}

// ExtractMetadata recovers the issue number and date from passage text.
// Returns nil when no marker is present, and also when a marker is present
// but its date does not parse (logged at warn level, never fatal).
func ExtractMetadata(text string) *DocumentMetadata {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	seq, err := strconv.Atoi(m[1])
	if err != nil || seq <= 0 {
		zap.L().Warn("document marker with unusable sequence number",
			zap.String("raw", m[0]))
		return nil
	}

	date, ok := parseMarkerDate(m[2], m[3], m[4])
	if !ok {
		zap.L().Warn("document marker with unparsable date",
			zap.String("raw", m[0]))
		return nil
	}

	return &DocumentMetadata{SequenceNumber: seq, CreationDate: date}
}

// parseMarkerDate builds a calendar date from month name, day and year
// strings. Month accepts both abbreviated ("Jun") and full ("June") names.
func parseMarkerDate(monthName, dayStr, yearStr string) (time.Time, bool) {
	var month time.Month
	if t, err := time.Parse("Jan", monthName); err == nil {
		month = t.Month()
	} else if t, err := time.Parse("January", monthName); err == nil {
		month = t.Month()
	} else {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components (Jun 31 -> Jul 1);
	// reject anything that did not round-trip.
	if date.Year() != year || date.Month() != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// DateFromFilename derives a date from the lpgYYMMDD.pdf naming convention,
// with YY interpreted as 2000+YY. Reports false for any other name.
func DateFromFilename(name string) (time.Time, bool) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}

	yy, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	dd, _ := strconv.Atoi(m[3])

	if mm < 1 || mm > 12 {
		return time.Time{}, false
	}
	date := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if date.Day() != dd || date.Month() != time.Month(mm) {
		return time.Time{}, false
	}
	return date, true
}

// ResolveDate determines a candidate's effective document date. Lookup order:
// prior creation_date metadata, then the inline marker, then the filename
// convention. The second return value is false when no signal resolved; such
// candidates sort after every dated one.
func ResolveDate(c model.Candidate) (time.Time, bool) {
	if raw, ok := c.Metadata[model.MetadataKeyCreationDate]; ok {
		for _, layout := range metadataDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
		zap.L().Warn("unparsable creation_date metadata, falling back",
			zap.String("source", c.SourceName),
			zap.String("creation_date", raw))
	}

	if md := ExtractMetadata(c.Text); md != nil {
		return md.CreationDate, true
	}

	if t, ok := DateFromFilename(c.SourceName); ok {
		return t, true
	}

	return time.Time{}, false
}
