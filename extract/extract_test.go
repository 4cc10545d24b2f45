package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindAccountID(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Account: 123456789012", "123456789012"},
		{"1234-5678-9012", "123456789012"},
		{"Prod\nuser@example.com\n123456789012", "123456789012"},
		{"no id here", ""},
		{"too short 12345678901", ""},
		{"1234567890123 is thirteen digits", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FindAccountID(tt.text), "text=%q", tt.text)
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Production", firstLine("\n  \nProduction\nsecond"))
	assert.Equal(t, "", firstLine("  \n \n"))
}
