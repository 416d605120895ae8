package types

import "time"

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultConversationTitle is the placeholder title of a fresh conversation.
const DefaultConversationTitle = "New Chat"

// Conversation is a chat thread owned by a single user.
type Conversation struct {
	ID        string    `json:"id" msgpack:"id"`
	UserID    string    `json:"userId,omitempty" msgpack:"userId,omitempty"`
	Title     string    `json:"title" msgpack:"title"`
	Model     string    `json:"model,omitempty" msgpack:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updatedAt"`
}

// OwnedBy returns true if the conversation belongs to userID.
func (c *Conversation) OwnedBy(userID string) bool {
	return c != nil && userID != "" && c.UserID == userID
}

// Message is a single persisted chat message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Attachment is the metadata of an uploaded file. Bytes live in object storage
// under StorageRef.
type Attachment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Filename       string    `json:"filename"`
	MimeType       string    `json:"mimeType"`
	SizeBytes      int64     `json:"sizeBytes"`
	StorageRef     string    `json:"storageRef"`
	CreatedAt      time.Time `json:"createdAt"`
}
