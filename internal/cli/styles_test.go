package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name   string
		format func(string) string
		icon   string
	}{
		{"success", FormatSuccess, SuccessIcon},
		{"error", FormatError, ErrorIcon},
		{"warning", FormatWarning, WarningIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("Saved 3 transactions")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "Saved 3 transactions")
		})
	}

	assert.Contains(t, FormatTitle("Extraction cache"), "Extraction cache")
	assert.Contains(t, FormatSubtle("from cache"), "from cache")
}
