package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"valid", "120h", 120 * time.Hour},
		{"padded", " 5m ", 5 * time.Minute},
		{"empty", "", time.Hour},
		{"malformed", "five minutes", time.Hour},
		{"negative", "-1m", time.Hour},
		{"zero", "0s", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.input, time.Hour))
		})
	}
}
