package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Slugify Tests
// =============================================================================

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"basic", "Winter Harvest", "winter-harvest"},
		{"numbers", "Block 42", "block-42"},
		{"punctuation dropped", "North/South block!", "northsouth-block"},
		{"hyphens kept", "spruce-pine-mix", "spruce-pine-mix"},
		{"empty", "", ""},
		{"only special", "!@#$%", ""},
		{"non ascii dropped", "Åsen Skog", "sen-skog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
