package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents who authored a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatThread represents one conversation between a user and the tutor
type ChatThread struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OwnerID string    `json:"owner_id" db:"owner_id"`
	Title   string    `json:"title" db:"title"`
	// Summary is the rolling summary of evicted turns;
	// SummarizedThrough counts the oldest messages it covers.
	Summary           string    `json:"summary" db:"summary"`
	SummarizedThrough int       `json:"summarized_through" db:"summarized_through"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ChatThread model
func (ChatThread) TableName() string {
	return "chat_threads"
}

// NewChatThread creates a new ChatThread instance
func NewChatThread(ownerID, title string) *ChatThread {
	now := time.Now()
	return &ChatThread{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChatMessage represents a single turn persisted within a thread
type ChatMessage struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ThreadID   uuid.UUID       `json:"thread_id" db:"thread_id"`
	OwnerID    string          `json:"owner_id" db:"owner_id"`
	Role       MessageRole     `json:"role" db:"role"`
	Text       string          `json:"text" db:"text"`
	References json.RawMessage `json:"references,omitempty" db:"references"` // resolved citations, assistant turns only
	Reasoning  *string         `json:"reasoning,omitempty" db:"reasoning"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// NewChatMessage creates a new ChatMessage instance
func NewChatMessage(threadID uuid.UUID, ownerID string, role MessageRole, text string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.New(),
		ThreadID:  threadID,
		OwnerID:   ownerID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// SetReferences attaches resolved citations to the message
func (m *ChatMessage) SetReferences(refs []Reference) {
	if len(refs) == 0 {
		return
	}
	if data, err := json.Marshal(refs); err == nil {
		m.References = data
	}
}

// SetReasoning attaches the extracted reasoning trace to the message
func (m *ChatMessage) SetReasoning(reasoning string) {
	if reasoning == "" {
		return
	}
	m.Reasoning = &reasoning
}

// ParsedReferences decodes the stored references payload
func (m *ChatMessage) ParsedReferences() []Reference {
	if len(m.References) == 0 {
		return nil
	}
	var refs []Reference
	if err := json.Unmarshal(m.References, &refs); err != nil {
		return nil
	}
	return refs
}
