package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"sub-second", 350 * time.Millisecond, "350ms"},
		{"seconds", 2500 * time.Millisecond, "2.50s"},
		{"minutes", 90 * time.Second, "1.5m"},
		{"hours", 90 * time.Minute, "1.5h"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDuration(tc.d))
		})
	}
}

func TestGetStringOrDefault(t *testing.T) {
	assert.Equal(t, "Acme", GetStringOrDefault("Acme", "unknown"))
	assert.Equal(t, "unknown", GetStringOrDefault("", "unknown"))
}
