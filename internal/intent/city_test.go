package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Clima en Buenos Aires", "Buenos Aires"},
		{"Clima en Córdoba", "Córdoba"},
		{"Qué temperatura hace", "X"},
		{"Qué tiempo hace en Mendoza?", "Mendoza"},
		{"pronóstico para San Juan, por favor", "San Juan"},
		{"clima de La Paz hoy", "La Paz"},
		{"temperatura en Santa Fe!", "Santa Fe"},
		{"lluvia en Lima123", "Lima"},
		{"clima en ", "X"},
		{"clima en ???", "X"},
		{"", "X"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractCity(tt.input, "X"), "input %q", tt.input)
	}
}

func TestExtractCityCompoundLeadAlone(t *testing.T) {
	// a lead word without a second token is taken as a single word
	assert.Equal(t, "San", ExtractCity("clima en San", "X"))
}

func TestExtractCityNeverEmpty(t *testing.T) {
	inputs := []string{"en 123", "de ...", "para !!", "desde ,", "en", "\xff\xff\xff\xff", "\xff\xfe clima en"}
	for _, in := range inputs {
		assert.NotEmpty(t, ExtractCity(in, "Buenos Aires"), "input %q", in)
	}
}

func TestExtractCityInvalidUTF8(t *testing.T) {
	assert.Equal(t, "Lima", ExtractCity("\xff\xff\xff\xff en Lima", "X"))
	assert.Equal(t, "Lima", ExtractCity("\xff\xff\xff\xff\xff\xff clima en Lima", "X"))
	assert.Equal(t, "Córdoba", ExtractCity("ÁÉ\xff en Córdoba\xff", "X"))
}

func TestExtractCityWidthChangingLowercase(t *testing.T) {
	// U+0130 lower-cases to a one-byte 'i'
	assert.Equal(t, "Lima", ExtractCity("İİ en Lima", "X"))
	assert.Equal(t, "San Juan", ExtractCity("HOLA İ, clima en San Juan?", "X"))
}
