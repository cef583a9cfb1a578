package selection

import (
	"strings"
	"testing"
)

func TestCleanSubject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short line untouched", "AI hiring surges", 78, "AI hiring surges"},
		{"whitespace collapsed", "  AI\thiring\n surges ", 78, "AI hiring surges"},
		{"surrounding quotes stripped", `"AI hiring surges"`, 78, "AI hiring surges"},
		{"control characters removed", "AI\x00 hiring\x1F surges", 78, "AI hiring surges"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSubject(tt.in, tt.max); got != tt.want {
				t.Errorf("CleanSubject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanSubjectTruncates(t *testing.T) {
	long := strings.Repeat("markets ", 20)
	got := CleanSubject(long, 40)
	if len([]rune(got)) != 40 {
		t.Errorf("truncated length = %d runes, want 40", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated subject %q missing ellipsis", got)
	}
}
