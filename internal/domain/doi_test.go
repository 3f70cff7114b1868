package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "10.1/example", expected: "10.1/example"},
		{name: "uppercase", input: "10.1038/NATURE12373", expected: "10.1038/nature12373"},
		{name: "surrounding whitespace", input: "  10.1/example \n", expected: "10.1/example"},
		{name: "https resolver", input: "https://doi.org/10.1/Example", expected: "10.1/example"},
		{name: "dx resolver", input: "http://dx.doi.org/10.1/example", expected: "10.1/example"},
		{name: "doi scheme", input: "doi:10.1/example", expected: "10.1/example"},
		{name: "uppercase scheme", input: "DOI: 10.1/example", expected: "10.1/example"},
		{name: "stacked prefixes", input: "https://doi.org/doi:10.1/example", expected: "10.1/example"},
		{name: "percent encoded resolver url", input: "https://doi.org/10.1002/%28SICI%291097", expected: "10.1002/(sici)1097"},
		{name: "bare doi keeps escapes", input: "10.1002/%28SICI%291097", expected: "10.1002/%28sici%291097"},
		{name: "resolver url decoded once", input: "https://doi.org/10.1000/a%2541", expected: "10.1000/a%41"},
		{name: "encoded prefix inside url", input: "https://doi.org/doi.org%2F10.1/X", expected: "10.1/x"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDOI(tt.input))
		})
	}
}

func TestNormalizeDOI_Idempotent(t *testing.T) {
	inputs := []string{
		"10.1000/a%2541",
		"https://doi.org/10.1000/a%2541",
		"https://doi.org/10.1000/a%252541",
		"https://dx.doi.org/doi:10.1/%20padded%20",
		"https://doi.org/doi.org%2F10.1/X",
		"doi:https://doi.org/10.1002/%28SICI%291097",
		"10.1002/%28SICI%291097",
		"DOI: 10.1038/NATURE12373",
		"https://doi.org/%zz",
		"",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			once := NormalizeDOI(raw)
			assert.Equal(t, once, NormalizeDOI(once))
		})
	}
}

func TestParseDOI(t *testing.T) {
	t.Run("valid DOI is normalized", func(t *testing.T) {
		doi, err := ParseDOI("https://doi.org/10.1/EXAMPLE")
		require.NoError(t, err)
		assert.Equal(t, "10.1/example", doi)
	})

	invalid := []string{"", "example", "11.1/abc", "10./abc", "10.1/", "10.1/a b"}
	for _, raw := range invalid {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseDOI(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDOI))
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, "doi", ve.Field)
		})
	}
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "attention is all you need", TitleKey("  Attention Is\tAll You   Need "))
	assert.Equal(t, "", TitleKey("   "))
}

func TestPaper_HasIdentity(t *testing.T) {
	assert.True(t, (&Paper{DOI: "10.1/x"}).HasIdentity())
	assert.True(t, (&Paper{Title: "A title"}).HasIdentity())
	assert.False(t, (&Paper{Title: "  "}).HasIdentity())
}
