package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"McDonald's / Burger King", "McDonalds Burger King"},
		{"Test/File:Name*?.txt", "TestFileName.txt"},
		{`a\b|c<d>e"f`, "abcdef"},
		{"  spaced   out  ", "spaced out"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestBuildDisplayFilename(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	got := BuildDisplayFilename(&d, "Starbucks", "", "pdf")
	assert.Equal(t, "2024-03-15 Starbucks - Receipt.pdf", got)

	got = BuildDisplayFilename(&d, "Starbucks", "team lunch", "pdf")
	assert.Equal(t, "2024-03-15 Starbucks - Receipt - team lunch.pdf", got)
}

func TestBuildDisplayFilename_VendorFallback(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	got := BuildDisplayFilename(&d, "", "", "jpg")
	assert.Equal(t, "2024-03-15 Unknown - Receipt.jpg", got)

	// A vendor that sanitizes to nothing also falls back.
	got = BuildDisplayFilename(&d, `?*/"`, "", "jpg")
	assert.Equal(t, "2024-03-15 Unknown - Receipt.jpg", got)
}

func TestBuildDisplayFilename_DateFallsBackToToday(t *testing.T) {
	got := BuildDisplayFilename(nil, "Store", "", "png")
	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, today+" Store - Receipt.png", got)
}

func TestBuildDisplayFilename_SanitizesVendorAndDescription(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	got := BuildDisplayFilename(&d, "McDonald's / Burger King", "a:b", "PDF")
	assert.Equal(t, "2024-01-02 McDonalds Burger King - Receipt - ab.pdf", got)
}

func TestBuildStoragePath(t *testing.T) {
	got := BuildStoragePath("user123", "MEALS", "f.pdf")
	assert.Equal(t, "receipts/user123/MEALS/f.pdf", got)
}

func TestBuildStoragePath_DefaultCategory(t *testing.T) {
	got := BuildStoragePath("user123", "", "f.pdf")
	assert.Equal(t, "receipts/user123/OTHER/f.pdf", got)
}
