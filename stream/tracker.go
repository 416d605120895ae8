package stream

import (
	"strings"

	"github.com/wyemhu12/vikini-sub002/types"
)

// Tracker is the client-side state of one response stream: the assistant
// answer assembled from text deltas and the conversation the control events
// describe.
//
// It fires OnCreated exactly once per conversation id. If the server never
// sends conversationCreated for a conversation the client did not know, the
// first title event synthesizes a placeholder so the conversation list still
// learns about it.
type Tracker struct {
	// OnCreated is called when a conversation becomes known.
	OnCreated func(c types.Conversation)
	// OnTitle is called for every title event after OnCreated has fired for
	// its conversation.
	OnTitle func(kind types.ControlKind, conversationID, title string)

	text         strings.Builder
	known        map[string]bool
	conversation *types.Conversation
	synthesized  bool
	finalTitle   string
}

// NewTracker creates a tracker. knownConversationID is the conversation the
// request was sent to, or empty for a new chat.
func NewTracker(knownConversationID string) *Tracker {
	t := &Tracker{known: make(map[string]bool)}
	if knownConversationID != "" {
		t.known[knownConversationID] = true
		t.conversation = &types.Conversation{ID: knownConversationID}
	}
	return t
}

// OnText implements Handler.
func (t *Tracker) OnText(delta string) {
	t.text.WriteString(delta)
}

// OnControl implements Handler.
func (t *Tracker) OnControl(ev types.ControlEvent) {
	if !ev.Valid() {
		return
	}

	switch ev.Type {
	case types.ControlConversationCreated:
		c := *ev.Conversation
		if t.known[c.ID] {
			// Explicit creation after a synthesized placeholder fills in details.
			if t.conversation != nil && t.conversation.ID == c.ID {
				if t.conversation.Title != "" && c.Title == types.DefaultConversationTitle {
					c.Title = t.conversation.Title
				}
				t.conversation = &c
				t.synthesized = false
			}
			return
		}
		t.known[c.ID] = true
		t.conversation = &c
		if t.OnCreated != nil {
			t.OnCreated(c)
		}

	case types.ControlOptimisticTitle, types.ControlFinalTitle:
		id := ev.ConversationID
		if !t.known[id] {
			placeholder := types.Conversation{ID: id, Title: ev.Title}
			t.known[id] = true
			t.conversation = &placeholder
			t.synthesized = true
			if t.OnCreated != nil {
				t.OnCreated(placeholder)
			}
		}
		if t.conversation != nil && t.conversation.ID == id {
			t.conversation.Title = ev.Title
		}
		if ev.Type == types.ControlFinalTitle {
			t.finalTitle = ev.Title
		}
		if t.OnTitle != nil {
			t.OnTitle(ev.Type, id, ev.Title)
		}
	}
}

// Text returns the assistant answer received so far.
func (t *Tracker) Text() string { return t.text.String() }

// Conversation returns the tracked conversation, if any is known.
func (t *Tracker) Conversation() (types.Conversation, bool) {
	if t.conversation == nil {
		return types.Conversation{}, false
	}
	return *t.conversation, true
}

// Synthesized reports whether the conversation was inferred from a title
// event rather than announced by conversationCreated.
func (t *Tracker) Synthesized() bool { return t.synthesized }

// FinalTitle returns the last finalTitle received, or empty.
func (t *Tracker) FinalTitle() string { return t.finalTitle }

// Verify Tracker implements Handler.
var _ Handler = (*Tracker)(nil)
