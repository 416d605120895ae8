package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wyemhu12/vikini-sub002/types"
)

// MaxTitleRunes caps every title the service emits.
const MaxTitleRunes = 60

// OptimisticTitle derives a provisional title from the first user message:
// whitespace collapsed, cut on a word boundary at MaxTitleRunes.
func OptimisticTitle(message string) string {
	title := truncateRunes(strings.Join(strings.Fields(message), " "), MaxTitleRunes)
	if title == "" {
		return types.DefaultConversationTitle
	}
	return title
}

// CleanTitle normalises a model-generated title: first non-empty line,
// surrounding quotes, markdown emphasis and trailing punctuation removed.
// Returns "" when nothing usable remains.
func CleanTitle(raw string) string {
	var line string
	for l := range strings.SplitSeq(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.TrimPrefix(line, "Title:")
	line = strings.Trim(line, " \t\"'`*#_“”‘’")
	line = strings.TrimRightFunc(line, func(r rune) bool {
		return r == '.' || r == ':' || r == ';' || unicode.IsSpace(r)
	})
	return truncateRunes(strings.Join(strings.Fields(line), " "), MaxTitleRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n-1]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}

// titlePrompt asks the model for a short title of the opening exchange.
func titlePrompt(userMessage, answer string) string {
	const maxContext = 2000
	var b strings.Builder
	b.WriteString("Write a short title (at most six words) for a conversation that starts like this. ")
	b.WriteString("Reply with the title only, in the language of the user.\n\n")
	b.WriteString("User: ")
	b.WriteString(truncateRunes(userMessage, maxContext))
	b.WriteString("\n\nAssistant: ")
	b.WriteString(truncateRunes(answer, maxContext))
	return b.String()
}
