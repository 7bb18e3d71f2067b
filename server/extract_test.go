package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBirthday(t *testing.T) {
	got := ExtractFacts("remember that my birthday is July 29, 1993")
	require.Len(t, got, 1)
	assert.Equal(t, "birthday", got[0].Type)
	assert.Equal(t, "July 29, 1993", got[0].Value)
	assert.Equal(t, "1993-07-29", got[0].Normalized)
	assert.Equal(t, "regex", got[0].Source)
}

func TestExtractBornOn(t *testing.T) {
	got := ExtractFacts("I was born on 29/07/1993")
	require.NotEmpty(t, got)
	for _, f := range got {
		assert.Equal(t, "birthday", f.Type)
		assert.Equal(t, "29/07/1993", f.Value)
		assert.Equal(t, "1993-07-29", f.Normalized)
	}
}

func TestExtractName(t *testing.T) {
	got := ExtractFacts("I'm Alice")
	require.Len(t, got, 1)
	assert.Equal(t, "name", got[0].Type)
	assert.Equal(t, "Alice", got[0].Value)

	assert.Empty(t, ExtractFacts("hello there"))
}

func TestIsExplicitSave(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Remember that my birthday is May 3", true},
		{"please remember I like tea", true},
		{"Don't forget my name", true},
		{"can you remember this", true},
		{"my birthday is May 3", false},
		{"I remembered that", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExplicitSave(tt.text))
		})
	}
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, "2001-02-03", parseDate("2001-02-03"))
	assert.Equal(t, "1993-07-29", parseDate(" 29-07-1993 "))
	assert.Equal(t, "1993-07-29", parseDate("29 Jul 1993"))
	assert.Equal(t, "", parseDate("2001-02-30"))
	assert.Equal(t, "", parseDate("someday"))
}
