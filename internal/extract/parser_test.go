package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TotalAndTax(t *testing.T) {
	text := "Starbucks\nLatte\nTAX $10.50\nTOTAL $123.45"
	fields := Parse(text)

	require.NotNil(t, fields.TotalAmount)
	assert.Equal(t, 123.45, *fields.TotalAmount)
	require.NotNil(t, fields.TaxAmount)
	assert.Equal(t, 10.50, *fields.TaxAmount)
}

func TestParse_LastTotalWins(t *testing.T) {
	// Printed receipts list subtotal before the grand total; the last
	// match must win.
	text := "Store\nSUBTOTAL $9.99\nTAX $0.80\nTOTAL $10.79"
	fields := Parse(text)

	require.NotNil(t, fields.TotalAmount)
	assert.Equal(t, 10.79, *fields.TotalAmount)
}

func TestParse_TaxWordBoundary(t *testing.T) {
	text := "City Cab\nTAXI FARE 32.00\nthanks"
	fields := Parse(text)

	assert.Nil(t, fields.TaxAmount)
}

func TestParse_TaxAlsoLastOccurrence(t *testing.T) {
	text := "Shop\nTax 1.00\nTax 2.00\nTotal 30.00"
	fields := Parse(text)

	require.NotNil(t, fields.TaxAmount)
	assert.Equal(t, 2.00, *fields.TaxAmount)
}

func TestParse_ThousandsSeparator(t *testing.T) {
	text := "Dealer\nTOTAL: $1,234.56"
	fields := Parse(text)

	require.NotNil(t, fields.TotalAmount)
	assert.Equal(t, 1234.56, *fields.TotalAmount)
}

func TestParse_NumericDate(t *testing.T) {
	fields := Parse("Store\n03/15/2024\nTOTAL 5.00")

	require.NotNil(t, fields.Date)
	assert.Equal(t, "2024-03-15", *fields.Date)
}

func TestParse_TwoDigitYear(t *testing.T) {
	fields := Parse("Store\n3-5-24\nTOTAL 5.00")

	require.NotNil(t, fields.Date)
	assert.Equal(t, "2024-03-05", *fields.Date)
}

func TestParse_MonthNameDate(t *testing.T) {
	fields := Parse("Store\nMarch 15, 2024\nTOTAL 5.00")

	require.NotNil(t, fields.Date)
	assert.Equal(t, "2024-03-15", *fields.Date)
}

func TestParse_InvalidCalendarDateIgnored(t *testing.T) {
	fields := Parse("Store\n13/45/2024\nTOTAL 5.00")

	assert.Nil(t, fields.Date)
}

func TestParse_VendorIsFirstNonBlankLine(t *testing.T) {
	fields := Parse("\n\n  Whole Foods Market  \nTOTAL 42.00")

	require.NotNil(t, fields.Vendor)
	assert.Equal(t, "Whole Foods Market", *fields.Vendor)
}

func TestParse_DescriptionSkipsFieldLines(t *testing.T) {
	text := "Cafe\nCroissant\nEspresso\n03/15/2024\nTAX 0.50\nTOTAL 8.25"
	fields := Parse(text)

	require.NotNil(t, fields.Description)
	assert.Equal(t, "Croissant, Espresso", *fields.Description)
}

func TestParse_EmptyText(t *testing.T) {
	fields := Parse("   \n \t ")

	assert.Nil(t, fields.Vendor)
	assert.Nil(t, fields.TotalAmount)
	assert.Nil(t, fields.TaxAmount)
	assert.Nil(t, fields.Date)
	assert.Nil(t, fields.Description)
}

func TestParse_NoMatchesNoPanic(t *testing.T) {
	fields := Parse("lorem ipsum dolor sit amet")

	require.NotNil(t, fields.Vendor)
	assert.Equal(t, "lorem ipsum dolor sit amet", *fields.Vendor)
	assert.Nil(t, fields.TotalAmount)
	assert.Nil(t, fields.TaxAmount)
	assert.Nil(t, fields.Date)
}

func TestConfidence_Scoring(t *testing.T) {
	empty := Parse("x")
	assert.InDelta(t, 0.3, Confidence(empty, "x"), 0.001) // base + vendor

	full := Parse("Store\n03/15/2024\nTAX 1.00\nTOTAL 10.00")
	// base + vendor + total + tax + date
	assert.InDelta(t, 0.85, Confidence(full, "short"), 0.001)
}

func TestConfidence_Capped(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	full := Parse("Store\n03/15/2024\nTAX 1.00\nTOTAL 10.00")
	score := Confidence(full, string(long))
	assert.LessOrEqual(t, score, float32(1.0))
	assert.InDelta(t, 0.95, score, 0.001)
}
