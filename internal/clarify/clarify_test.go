package clarify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAmbiguous(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"loans", true},
		{"show loans", true},
		{"show me the numbers please", true},
		{"show me the gold loan total", false},
		{"top 3 branches by casa balance", false},
		{"which branch has highest upi", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAmbiguous(tt.query))
		})
	}
}

func TestSuggestions(t *testing.T) {
	got := Suggestions("show loan and customer numbers")
	require.Len(t, got, 3)
	assert.Equal(t, "Which type of loan?", got[0].Prompt)
	assert.Equal(t, "Which customer metric?", got[1].Prompt)
	assert.Equal(t, "What would you like to see?", got[2].Prompt)
	assert.Len(t, got[2].Options, 5)

	assert.Empty(t, Suggestions("highest gold loan by branch"))
	assert.Equal(t, "Which payment type?", Suggestions("total payment volume")[0].Prompt)
	assert.Equal(t, "Which deposit type?", Suggestions("total deposit")[0].Prompt)
}

func TestAutoClarify(t *testing.T) {
	got, ok := AutoClarify("Loan by branch")
	require.True(t, ok)
	assert.Equal(t, "total gold loan by branch", got)

	got, ok = AutoClarify("highest customer count")
	require.True(t, ok)
	assert.Equal(t, "highest active customer count", got)

	got, ok = AutoClarify("highest gold loan")
	assert.False(t, ok)
	assert.Equal(t, "highest gold loan", got)
}

func TestFormatPrompt(t *testing.T) {
	out := FormatPrompt([]Question{{Prompt: "Which type of loan?", Options: []string{"Gold loan", "Home loan"}}})
	assert.Contains(t, out, "Please clarify")
	assert.Contains(t, out, "Which type of loan?\n  1. Gold loan\n  2. Home loan\n")
}
