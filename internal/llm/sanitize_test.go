package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestSanitizeGuessJSON_CoercesNumericMoney(t *testing.T) {
	out, dropped, err := SanitizeGuessJSON([]byte(`{"vendor":"Store","total":12.5,"tax":0.8}`), nil)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	m := decode(t, out)
	assert.Equal(t, "12.50", m["total"])
	assert.Equal(t, "0.80", m["tax"])
}

func TestSanitizeGuessJSON_DropsNullAndEmpty(t *testing.T) {
	out, dropped, err := SanitizeGuessJSON([]byte(`{"vendor":"  ","total":null,"tax":"null","tx_date":""}`), nil)
	require.NoError(t, err)
	assert.Len(t, dropped, 4)

	m := decode(t, out)
	assert.Empty(t, m)
}

func TestSanitizeGuessJSON_RemovesUnknownKeys(t *testing.T) {
	out, dropped, err := SanitizeGuessJSON([]byte(`{"vendor":"Store","merchant_id":"x","line_items":[]}`), nil)
	require.NoError(t, err)
	assert.Len(t, dropped, 2)

	m := decode(t, out)
	assert.Equal(t, "Store", m["vendor"])
	assert.NotContains(t, m, "merchant_id")
	assert.NotContains(t, m, "line_items")
}

func TestSanitizeGuessJSON_TrimsStrings(t *testing.T) {
	out, _, err := SanitizeGuessJSON([]byte(`{"vendor":"  Store  ","category":" MEALS "}`), nil)
	require.NoError(t, err)

	m := decode(t, out)
	assert.Equal(t, "Store", m["vendor"])
	assert.Equal(t, "MEALS", m["category"])
}

func TestSanitizeGuessJSON_InvalidJSON(t *testing.T) {
	_, _, err := SanitizeGuessJSON([]byte(`{not json`), nil)
	require.Error(t, err)
}

func TestValidateSanitizedRoundTrip(t *testing.T) {
	schema := BuildReceiptJSONSchema(nil)

	raw := []byte(`{"vendor":"Store","total":12.5,"extra":"drop me"}`)
	out, _, err := SanitizeGuessJSON(raw, nil)
	require.NoError(t, err)

	require.NoError(t, ValidateJSONAgainstSchema(schema, out))
}

func TestValidate_RejectsUnknownKeys(t *testing.T) {
	schema := BuildReceiptJSONSchema(nil)

	err := ValidateJSONAgainstSchema(schema, []byte(`{"vendor":"Store","extra":"x"}`))
	require.Error(t, err)
}

func TestValidate_CategoryEnum(t *testing.T) {
	schema := BuildReceiptJSONSchema([]string{"MEALS", "OTHER"})

	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"category":"MEALS"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"category":"SNACKS"}`)))
}
