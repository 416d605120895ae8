package reader

import (
	"time"

	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// SummaryResponse is the payload of `vikini summarize`.
type SummaryResponse struct {
	File            string   `json:"file"`
	SizeBytes       int64    `json:"size_bytes"`
	DeclaredEntries int      `json:"declared_entries"`
	Entries         int      `json:"entries"`
	Snippets        int      `json:"snippets"`
	Truncated       bool     `json:"truncated"`
	ParseFailed     bool     `json:"parse_failed"`
	Warnings        []string `json:"warnings"`
	Text            string   `json:"text"`

	// Result is the full summary, for views that list entries.
	Result *zipsum.Result `json:"-" yaml:"-"`
}

// ReplayFrame is one decoded frame of a recorded stream.
type ReplayFrame struct {
	Index          int    `json:"index"`
	Kind           string `json:"kind"`
	Text           string `json:"text,omitempty"`
	Control        string `json:"control,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Title          string `json:"title,omitempty"`
}

// ReplayResponse is the payload of `vikini replay`.
type ReplayResponse struct {
	File           string        `json:"file"`
	Framing        string        `json:"framing"`
	Frames         []ReplayFrame `json:"frames"`
	TextBytes      int           `json:"text_bytes"`
	ControlFrames  int           `json:"control_frames"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Title          string        `json:"title,omitempty"`
	FinalTitle     string        `json:"final_title,omitempty"`
	// Synthesized is set when no conversationCreated frame was seen and the
	// conversation was inferred from a title frame.
	Synthesized bool   `json:"synthesized"`
	Text        string `json:"text"`
}

// HistoryItem is one archived message in `vikini history`.
type HistoryItem struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Day            string    `json:"day"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	Preview        string    `json:"preview"`
}
