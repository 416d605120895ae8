package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"testing"
)

func TestControlEvent_Valid(t *testing.T) {
	tests := []struct {
		name  string
		event *ControlEvent
		want  bool
	}{
		{"nil", nil, false},
		{"created with id", &ControlEvent{Type: ControlConversationCreated, Conversation: &Conversation{ID: "c1"}}, true},
		{"created without conversation", &ControlEvent{Type: ControlConversationCreated}, false},
		{"created with empty id", &ControlEvent{Type: ControlConversationCreated, Conversation: &Conversation{}}, false},
		{"optimistic title", &ControlEvent{Type: ControlOptimisticTitle, ConversationID: "c1", Title: "Hi"}, true},
		{"final title missing title", &ControlEvent{Type: ControlFinalTitle, ConversationID: "c1"}, false},
		{"final title missing id", &ControlEvent{Type: ControlFinalTitle, Title: "Hi"}, false},
		{"unknown kind", &ControlEvent{Type: "bogus", ConversationID: "c1", Title: "Hi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControlEvent_WireShape(t *testing.T) {
	ev := NewTitleEvent(ControlFinalTitle, "c1", "Greeting")
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"finalTitle","conversationId":"c1","title":"Greeting"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var decoded ControlEvent
	if err := json.Unmarshal([]byte(`{"type":"conversationCreated","conversation":{"id":"c9","title":"New Chat","createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"}}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.TargetConversationID() != "c9" {
		t.Errorf("TargetConversationID() = %q, want %q", decoded.TargetConversationID(), "c9")
	}
}

func TestConversation_OwnedBy(t *testing.T) {
	c := &Conversation{ID: "c1", UserID: "u1"}
	if !c.OwnedBy("u1") {
		t.Error("expected owner match")
	}
	if c.OwnedBy("u2") {
		t.Error("expected foreign user to be rejected")
	}
	if c.OwnedBy("") {
		t.Error("expected empty user to be rejected")
	}
	var nilConv *Conversation
	if nilConv.OwnedBy("u1") {
		t.Error("expected nil conversation to be rejected")
	}
}
