package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wyemhu12/vikini-sub002/types"
)

func TestOptimisticTitle(t *testing.T) {
	long := strings.Repeat("word ", 30)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "Plan a trip", "Plan a trip"},
		{"whitespace collapsed", "  plan\n\ta   trip ", "plan a trip"},
		{"empty", "   ", types.DefaultConversationTitle},
		{"vietnamese", "Lên kế hoạch du lịch Huế", "Lên kế hoạch du lịch Huế"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OptimisticTitle(tt.input); got != tt.want {
				t.Errorf("OptimisticTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	got := OptimisticTitle(long)
	if n := utf8.RuneCountInString(got); n > MaxTitleRunes {
		t.Errorf("long title has %d runes, want <= %d", n, MaxTitleRunes)
	}
	if !strings.HasSuffix(got, "…") || strings.HasSuffix(got, " …") {
		t.Errorf("long title = %q, want a word-boundary cut ending in an ellipsis", got)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Greeting", "Greeting"},
		{"\"Greeting.\"\n", "Greeting"},
		{"\n\n**Trip to Hue**\nextra line", "Trip to Hue"},
		{"Title: Budget review", "Budget review"},
		{"# Heading:", "Heading"},
		{"“Quoted”", "Quoted"},
		{"   ", ""},
		{"\"\"", ""},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.raw); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTitlePrompt(t *testing.T) {
	p := titlePrompt("question", "answer")
	if !strings.Contains(p, "User: question") || !strings.Contains(p, "Assistant: answer") {
		t.Errorf("titlePrompt = %q", p)
	}
}
