// Package llm defines the language-model collaborator used by the chat and
// attachment services, with a Gemini implementation.
package llm

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/wyemhu12/vikini-sub002/types"
)

// Content roles understood by every Client.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Content is one turn of the conversation sent to the model.
type Content struct {
	Role  string
	Parts []string
}

// Text joins the parts of c.
func (c Content) Text() string {
	return strings.Join(c.Parts, "")
}

// UserText builds a single-part user turn.
func UserText(text string) Content {
	return Content{Role: RoleUser, Parts: []string{text}}
}

// Request is a single model invocation.
type Request struct {
	// Model overrides the client's default model when non-empty.
	Model string
	// System is the system instruction. Empty means none.
	System string
	// Contents is the conversation, oldest turn first.
	Contents []Content
	// Temperature overrides the client default when non-nil.
	Temperature *float32
	// MaxOutputTokens caps the response length. Zero leaves it to the model.
	MaxOutputTokens int32
}

// Client is the language-model contract.
type Client interface {
	// Generate returns the complete response text.
	Generate(ctx context.Context, req Request) (string, error)

	// Stream yields response text deltas in order. Iteration stops at the
	// first error, which is yielded with an empty delta.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// FromHistory converts stored messages to model turns. System messages are
// skipped; callers pass them through Request.System.
func FromHistory(msgs []types.Message) []Content {
	out := make([]Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleUser:
			out = append(out, Content{Role: RoleUser, Parts: []string{m.Content}})
		case types.RoleAssistant:
			out = append(out, Content{Role: RoleModel, Parts: []string{m.Content}})
		}
	}
	return out
}
