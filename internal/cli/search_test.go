package cli

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"ascii truncated", "hello world", 8, "hello w…"},
		{"multibyte not split", "héllo wörld désc", 8, "héllo w…"},
		{"cjk not split", "日本語のパッケージ説明", 5, "日本語の…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
			if n := utf8.RuneCountInString(got); n > tt.max {
				t.Errorf("truncate kept %d runes, max %d", n, tt.max)
			}
		})
	}
}

func TestTruncate_NeverEmitsReplacementByte(t *testing.T) {
	// A description cut mid-rune used to leave a broken byte before the
	// ellipsis; every prefix length must stay valid UTF-8.
	s := "caché für café–menü"
	for max := 2; max <= utf8.RuneCountInString(s); max++ {
		got := truncate(s, max)
		if !utf8.ValidString(got) || strings.ContainsRune(got, utf8.RuneError) {
			t.Fatalf("truncate(%q, %d) = %q is not clean UTF-8", s, max, got)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{42, "42"},
		{999, "999"},
		{12_300, "12.3k"},
		{4_500_000, "4.5M"},
	}
	for _, tt := range tests {
		if got := formatCount(tt.in); got != tt.want {
			t.Errorf("formatCount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
