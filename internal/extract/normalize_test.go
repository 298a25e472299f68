package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"tabs and runs", "a\t\tb   c", "a b c"},
		{"box noise line", "Store\n------\nTOTAL 5.00", "Store\n\nTOTAL 5.00"},
		{"blank collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"trailing spaces", "a   \nb", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
