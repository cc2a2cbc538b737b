package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole identifies who produced a transcript entry.
type ChatRole string

const (
	RoleUser ChatRole = "user"
	RoleBot  ChatRole = "bot"
)

// ChatEntry is one line of the chat transcript. Entries are immutable once
// created and are only ever appended, never edited, reordered or removed.
type ChatEntry struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatEntry creates a transcript entry with a fresh ID and timestamp.
func NewChatEntry(role ChatRole, text string) ChatEntry {
	return ChatEntry{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// ChatSession identifies one browser session of the chat page.
// All session state (transcript, busy flags, pending upload) lives in
// memory for the life of the session and is dropped on cleanup.
type ChatSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatSession creates a session with a fresh ID.
func NewChatSession() *ChatSession {
	return &ChatSession{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}
