package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Limit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultPageSize},
		{-3, DefaultPageSize},
		{10, 10},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageRequest{MaxResults: tt.in}.Limit())
	}
}

func TestPageToken_RoundTrip(t *testing.T) {
	tok := NextPageToken(0, 20, 45)
	assert.NotEmpty(t, tok)
	assert.Equal(t, 20, PageRequest{PageToken: tok}.Offset())

	assert.Empty(t, NextPageToken(40, 20, 45), "last page has no successor")
	assert.Equal(t, 0, PageRequest{PageToken: "%%%"}.Offset())
	assert.Equal(t, 0, PageRequest{}.Offset())
}
