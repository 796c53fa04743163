package providers

import (
	"context"
	"strings"
)

// Client streams chat completions from a remote endpoint
type Client interface {
	// StreamComplete starts one streaming completion. The handler receives
	// zero or more token events followed by exactly one completion or error,
	// unless the returned stream is cancelled first.
	StreamComplete(ctx context.Context, req CompletionRequest, h Handler) *Stream
}

// CompletionRequest represents a chat completion request
type CompletionRequest struct {
	ServerURL string    `json:"server_url"`
	APIPath   string    `json:"api_path"`
	Model     string    `json:"model"`
	APIKey    string    `json:"-"`
	Messages  []Message `json:"messages"`
}

// Endpoint returns the URL the request is posted to.
func (r CompletionRequest) Endpoint() string {
	return strings.TrimSuffix(r.ServerURL, "/") + r.APIPath
}

// Message represents a chat message. Content may embed inline image data URLs.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Handler receives the events of one completion.
type Handler struct {
	// OnToken receives the markup of everything received so far.
	OnToken func(markup string)
	// OnComplete receives the final markup and the raw text.
	OnComplete func(markup, text string)
	OnError    func(err error)
}

// Fixed sampling parameters sent with every completion
const (
	Temperature float32 = 0.7
	MaxTokens           = 2048
)
