package models

import (
	"time"

	"github.com/agentx/chatwidget/internal/models"
)

// CreateWidgetRequest starts a widget instance. Empty fields fall back to
// the configured defaults.
type CreateWidgetRequest struct {
	UserID  string `json:"userId,omitempty"`
	AppID   string `json:"appId,omitempty"`
	ModelID string `json:"modelId,omitempty"`
}

// SendMessageRequest is a prompt plus optional inline image data URLs
type SendMessageRequest struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

// EditMessageRequest replaces the content of a message
type EditMessageRequest struct {
	Text string `json:"text"`
}

// RenameSessionRequest changes a session title
type RenameSessionRequest struct {
	Title string `json:"title"`
}

// CreateSessionRequest optionally picks the app of the new session
type CreateSessionRequest struct {
	AppID string `json:"appId,omitempty"`
}

// SwitchAppRequest selects the active app; an empty id clears it
type SwitchAppRequest struct {
	AppID string `json:"appId"`
}

// SwitchModelRequest selects the active model
type SwitchModelRequest struct {
	ModelID string `json:"modelId"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  models.ErrorKind `json:"kind,omitempty"`
}

// ModelInfo describes a configured model without its credentials
type ModelInfo struct {
	ID        string `json:"id"`
	ModelName string `json:"modelName"`
	ServerURL string `json:"serverUrl"`
	Default   bool   `json:"default"`
}

// HealthResponse reports server liveness
type HealthResponse struct {
	Status  string    `json:"status"`
	Service string    `json:"service"`
	Widgets int       `json:"widgets"`
	Time    time.Time `json:"time"`
}

// ContentResponse carries the raw content of one message
type ContentResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
