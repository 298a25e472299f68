package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		matched bool
	}{
		{"MEALS", Meals, true},
		{"meals", Meals, true},
		{"travel expenses", TravelExpenses, true},
		{"restaurant", Meals, true},
		{"saas", SoftwareSubscription, true},
		{"taxi", TravelExpenses, true},
		{"  Groceries  ", Meals, true},
		{"crypto", Other, false},
		{"", Other, false},
	}
	for _, tt := range tests {
		got, ok := Canonicalize(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.matched, ok, "input %q", tt.in)
	}
}

func TestAsStringSlice(t *testing.T) {
	cats := AsStringSlice()
	assert.Len(t, cats, len(allCategories))
	assert.Contains(t, cats, "MEALS")
	assert.Contains(t, cats, "OTHER")
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusDiscarded.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt("pdf"))
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("jpeg"))
	assert.False(t, AllowedExt("exe"))
	assert.False(t, AllowedExt(""))
}
