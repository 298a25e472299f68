package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tallyleaf/receiptpipe/internal/entity"
)

var (
	// Loose on purpose: "SUBTOTAL $9.99" matches too, and the last
	// occurrence wins, which is exactly how printed receipts order
	// subtotal before total.
	reTotal = regexp.MustCompile(`(?i)total[\s:]*\$?\s*(-?\d[\d,]*(?:\.\d{1,2})?)`)
	// Word-start guard so TAXI, syntax etc. never match.
	reTax = regexp.MustCompile(`(?i)(?:^|[^a-z])tax[\s:]*\$?\s*(-?\d[\d,]*(?:\.\d{1,2})?)`)

	reDateNumeric = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	reDateMonth   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Parse extracts candidate financial fields from raw receipt text.
// Pure and total: it never fails, and every field degrades to nil
// independently when no pattern matches.
func Parse(text string) entity.ExtractedFields {
	var out entity.ExtractedFields
	if strings.TrimSpace(text) == "" {
		return out
	}

	lines := strings.Split(text, "\n")

	vendorIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			vendorIdx = i
			break
		}
	}
	if vendorIdx >= 0 {
		v := strings.TrimSpace(lines[vendorIdx])
		out.Vendor = &v
	}

	if m := lastSubmatch(reTotal, text); m != "" {
		if f, ok := parseAmount(m); ok {
			out.TotalAmount = &f
		}
	}
	if m := lastSubmatch(reTax, text); m != "" {
		if f, ok := parseAmount(m); ok {
			out.TaxAmount = &f
		}
	}
	if d, ok := parseDate(text); ok {
		out.Date = &d
	}

	var items []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == vendorIdx || trimmed == "" {
			continue
		}
		if reTotal.MatchString(trimmed) || reTax.MatchString(trimmed) ||
			reDateNumeric.MatchString(trimmed) || reDateMonth.MatchString(trimmed) {
			continue
		}
		items = append(items, trimmed)
	}
	if len(items) > 0 {
		d := strings.Join(items, ", ")
		out.Description = &d
	}

	return out
}

// lastSubmatch returns the first capture group of the last match of re.
func lastSubmatch(re *regexp.Regexp, text string) string {
	ms := re.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return ""
	}
	return ms[len(ms)-1][1]
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseDate tries numeric MM/DD/YYYY first, then "Month DD, YYYY",
// and normalizes to an ISO calendar date.
func parseDate(text string) (string, bool) {
	if m := reDateNumeric.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if iso, ok := isoDate(year, month, day); ok {
			return iso, true
		}
	}
	if m := reDateMonth.FindStringSubmatch(text); m != nil {
		month := monthIndex[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if iso, ok := isoDate(year, int(month), day); ok {
			return iso, true
		}
	}
	return "", false
}

// isoDate validates the calendar date (rejecting e.g. 13/45/2024 by
// round-tripping through time.Date) and formats it as YYYY-MM-DD.
func isoDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
