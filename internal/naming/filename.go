// Package naming builds canonical display filenames and storage paths for
// receipt artifacts. Everything here is deterministic: identical inputs
// always produce identical outputs, which downstream de-duplication
// relies on.
package naming

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tallyleaf/receiptpipe/constants"
)

var (
	// Characters stripped outright. Apostrophes and slashes are removed,
	// not replaced with spaces ("McDonald's / Burger King" ->
	// "McDonalds Burger King").
	reIllegal    = regexp.MustCompile(`[\\/:*?"<>|']`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// SanitizeFilename strips characters that are illegal in filenames,
// collapses whitespace runs to a single space, and trims the result.
func SanitizeFilename(name string) string {
	name = reIllegal.ReplaceAllString(name, "")
	name = reWhitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// BuildDisplayFilename renders "{YYYY-MM-DD} {Vendor} - Receipt{ - Description}.{ext}".
// A missing vendor becomes "Unknown", a missing description omits the
// segment, and a missing date falls back to today.
func BuildDisplayFilename(date *time.Time, vendor, description, ext string) string {
	d := time.Now().UTC()
	if date != nil {
		d = *date
	}

	v := SanitizeFilename(vendor)
	if v == "" {
		v = "Unknown"
	}

	var b strings.Builder
	b.WriteString(d.Format("2006-01-02"))
	b.WriteString(" ")
	b.WriteString(v)
	b.WriteString(" - Receipt")
	if desc := SanitizeFilename(description); desc != "" {
		b.WriteString(" - ")
		b.WriteString(desc)
	}
	if e := constants.NormalizeExt(ext); e != "" {
		b.WriteString(".")
		b.WriteString(e)
	}
	return b.String()
}

// BuildStoragePath renders "receipts/{userId}/{category}/{filename}".
// Category defaults to OTHER when unspecified.
func BuildStoragePath(userID, category, filename string) string {
	if category == "" {
		category = string(constants.Other)
	}
	return path.Join("receipts", userID, category, filename)
}
