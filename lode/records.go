package lode

import (
	"time"

	"github.com/wyemhu12/vikini-sub002/types"
)

// RecordKindMessage discriminates message records in the dataset.
const RecordKindMessage = "message"

// MessageRecord is the archived form of a chat message.
// Partition keys (user_id, day, conversation_id) are part of every record.
type MessageRecord struct {
	RecordKind     string     `json:"record_kind"`
	MessageID      string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Day            string     `json:"day"`
	Role           types.Role `json:"role"`
	Content        string     `json:"content"`
	Title          string     `json:"title"`
	Model          string     `json:"model,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message converts the record back to a types.Message.
func (r MessageRecord) Message() types.Message {
	return types.Message{
		ID:             r.MessageID,
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		Role:           r.Role,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
}

// toMessageRecordMap builds the map written to Lode. Lode's Hive layout reads
// partition values from record fields, so maps are used rather than structs.
func toMessageRecordMap(conv types.Conversation, m types.Message) map[string]any {
	userID := m.UserID
	if userID == "" {
		userID = conv.UserID
	}
	record := map[string]any{
		"record_kind":     RecordKindMessage,
		"message_id":      m.ID,
		"conversation_id": m.ConversationID,
		"user_id":         userID,
		"day":             DeriveDay(m.CreatedAt),
		"role":            string(m.Role),
		"content":         m.Content,
		"title":           conv.Title,
		"created_at":      m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if conv.Model != "" {
		record["model"] = conv.Model
	}
	return record
}

// fromRecordMap decodes a record read back from Lode. ok is false for records
// of another kind or without a message id.
func fromRecordMap(record map[string]any) (MessageRecord, bool) {
	if toString(record["record_kind"]) != RecordKindMessage {
		return MessageRecord{}, false
	}
	r := MessageRecord{
		RecordKind:     RecordKindMessage,
		MessageID:      toString(record["message_id"]),
		ConversationID: toString(record["conversation_id"]),
		UserID:         toString(record["user_id"]),
		Day:            toString(record["day"]),
		Role:           types.Role(toString(record["role"])),
		Content:        toString(record["content"]),
		Title:          toString(record["title"]),
		Model:          toString(record["model"]),
	}
	if r.MessageID == "" {
		return MessageRecord{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(record["created_at"])); err == nil {
		r.CreatedAt = ts
	}
	return r, true
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
