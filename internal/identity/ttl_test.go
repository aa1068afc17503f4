package identity

import (
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	fallback := 42 * time.Second

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"", fallback},
		{"soon", fallback},
		{"1w", fallback},
		{"-5m", fallback},
		{"5 m", fallback},
	}
	for _, tc := range cases {
		if got := ParseTTL(tc.raw, fallback); got != tc.want {
			t.Fatalf("ParseTTL(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
