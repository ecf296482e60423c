package utils

import (
	"strings"
	"testing"
)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateJoinCode()
		if len(code) != JoinCodeLength {
			t.Fatalf("code length: expected %d, got %d (%q)", JoinCodeLength, len(code), code)
		}
		for _, ch := range code {
			if !strings.ContainsRune(joinCodeCharset, ch) {
				t.Fatalf("code %q contains character %q outside the charset", code, ch)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d unique of 50", len(seen))
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole int
		want        float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 2, 50},
		{6, 10, 60},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{7, 7, 100},
	}
	for _, tc := range cases {
		if got := Percent(tc.part, tc.whole); got != tc.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tc.part, tc.whole, got, tc.want)
		}
	}
}
