package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LoadingMarker is the content of the assistant placeholder while a reply is generated.
const LoadingMarker = "__loading__"

// PlaceholderPrefix prefixes the id of the assistant placeholder.
const PlaceholderPrefix = "assist-"

// Message is one entry of a session transcript
type Message struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	HTMLContent string    `json:"htmlContent,omitempty"`
	Time        time.Time `json:"time"`
}

// IsPlaceholder reports whether the message is an in-flight assistant placeholder.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAssistant && m.Content == LoadingMarker
}

// Session represents a conversation owned by a user and optionally an app
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AppID     string    `json:"appId,omitempty"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMessageID returns a fresh message identifier.
func NewMessageID() string {
	return uuid.New().String()
}

// NewPlaceholderID returns a fresh placeholder identifier.
func NewPlaceholderID() string {
	return PlaceholderPrefix + uuid.New().String()
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// Persistable returns a copy of the session without placeholder messages.
func (s *Session) Persistable() *Session {
	c := s.Clone()
	c.Messages = c.Messages[:0:0]
	for _, m := range s.Messages {
		if !m.IsPlaceholder() {
			c.Messages = append(c.Messages, m)
		}
	}
	return c
}

// EnsureMessageIDs assigns ids to messages loaded without one.
func (s *Session) EnsureMessageIDs() bool {
	changed := false
	for i := range s.Messages {
		if s.Messages[i].ID == "" {
			s.Messages[i].ID = NewMessageID()
			changed = true
		}
	}
	return changed
}

// IndexOf returns the position of the message with the given id, or -1.
func (s *Session) IndexOf(id string) int {
	for i, m := range s.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// HasSystemPrefix reports whether the transcript starts with a system message.
func (s *Session) HasSystemPrefix() bool {
	return len(s.Messages) > 0 && s.Messages[0].Role == RoleSystem
}

// App is a persona preset exposed to hosts
type App struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Img         string `json:"img,omitempty"`
}

// Model is a completion endpoint exposed to hosts
type Model struct {
	ID        string `json:"id"`
	ServerURL string `json:"serverUrl"`
	ModelName string `json:"modelName"`
	APIPath   string `json:"apiPath"`
	APIKey    string `json:"-"`
}
