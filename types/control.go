package types

// ControlKind is the discriminator of an out-of-band stream control event.
type ControlKind string

// Control event kinds carried in $$META frames.
const (
	ControlConversationCreated ControlKind = "conversationCreated"
	ControlOptimisticTitle     ControlKind = "optimisticTitle"
	ControlFinalTitle          ControlKind = "finalTitle"
)

// IsTitle returns true for the two title-carrying kinds.
func (k ControlKind) IsTitle() bool {
	return k == ControlOptimisticTitle || k == ControlFinalTitle
}

// Known returns true if the kind is one the protocol defines.
func (k ControlKind) Known() bool {
	switch k {
	case ControlConversationCreated, ControlOptimisticTitle, ControlFinalTitle:
		return true
	default:
		return false
	}
}

// ControlEvent is a control payload multiplexed into the assistant text stream.
//
// Wire shapes:
//
//	{"type":"conversationCreated","conversation":{"id":"...", ...}}
//	{"type":"optimisticTitle","conversationId":"...","title":"..."}
//	{"type":"finalTitle","conversationId":"...","title":"..."}
type ControlEvent struct {
	// Type is the event discriminator.
	Type ControlKind `json:"type" msgpack:"type"`
	// Conversation is set for conversationCreated.
	Conversation *Conversation `json:"conversation,omitempty" msgpack:"conversation,omitempty"`
	// ConversationID is set for title events.
	ConversationID string `json:"conversationId,omitempty" msgpack:"conversationId,omitempty"`
	// Title is set for title events.
	Title string `json:"title,omitempty" msgpack:"title,omitempty"`
}

// Valid reports whether the event carries the fields its kind requires.
// Invalid events are dropped by parsers rather than dispatched.
func (e *ControlEvent) Valid() bool {
	if e == nil {
		return false
	}
	switch e.Type {
	case ControlConversationCreated:
		return e.Conversation != nil && e.Conversation.ID != ""
	case ControlOptimisticTitle, ControlFinalTitle:
		return e.ConversationID != "" && e.Title != ""
	default:
		return false
	}
}

// TargetConversationID returns the conversation the event refers to.
func (e *ControlEvent) TargetConversationID() string {
	if e.Type == ControlConversationCreated && e.Conversation != nil {
		return e.Conversation.ID
	}
	return e.ConversationID
}

// NewConversationCreated builds a conversationCreated event.
func NewConversationCreated(c *Conversation) ControlEvent {
	return ControlEvent{Type: ControlConversationCreated, Conversation: c}
}

// NewTitleEvent builds an optimisticTitle or finalTitle event.
func NewTitleEvent(kind ControlKind, conversationID, title string) ControlEvent {
	return ControlEvent{Type: kind, ConversationID: conversationID, Title: title}
}
