package services

import (
	"strings"

	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
)

const (
	titleLength     = 20
	titleEllipsis   = "..."
	newSessionTitle = "New session"
)

// CascadeDelete returns messages without the one at idx. When the message
// before idx is a user prompt, the rest of that turn goes too: everything up
// to, but excluding, the next user message.
func CascadeDelete(messages []models.Message, idx int) []models.Message {
	if idx < 0 || idx >= len(messages) {
		return append([]models.Message(nil), messages...)
	}

	end := idx + 1
	if idx > 0 && messages[idx-1].Role == models.RoleUser {
		for end < len(messages) && messages[end].Role != models.RoleUser {
			end++
		}
	}

	out := make([]models.Message, 0, len(messages)-(end-idx))
	out = append(out, messages[:idx]...)
	return append(out, messages[end:]...)
}

// DeriveTitle builds a session title from the first prompt: at most twenty
// characters plus an ellipsis, without a leftover "<app> - " prefix.
func DeriveTitle(text, appName string) string {
	runes := []rune(text)
	title := text
	if len(runes) > titleLength {
		title = string(runes[:titleLength]) + titleEllipsis
	}
	if appName != "" {
		title = strings.TrimPrefix(title, appName+" - ")
	}
	return title
}

// DefaultTitle is the title of a session that has no prompt yet.
func DefaultTitle(appName string) string {
	if appName == "" {
		return newSessionTitle
	}
	return appName + " - " + newSessionTitle
}

// ComposeContent appends attachment data URLs to the typed text, space separated.
func ComposeContent(text string, attachments []string) string {
	content := text
	for _, a := range attachments {
		if a == "" {
			continue
		}
		if content != "" {
			content += " "
		}
		content += a
	}
	return content
}

// BuildContext converts a transcript prefix into the request history. The
// app prompt leads the history when the session has no system message of
// its own. Placeholders are never sent.
func BuildContext(messages []models.Message, appPrompt string) []providers.Message {
	out := make([]providers.Message, 0, len(messages)+1)
	if appPrompt != "" && (len(messages) == 0 || messages[0].Role != models.RoleSystem) {
		out = append(out, providers.Message{Role: models.RoleSystem, Content: appPrompt})
	}
	for _, m := range messages {
		if m.IsPlaceholder() {
			continue
		}
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// countNonSystem returns the number of user and assistant messages.
func countNonSystem(messages []models.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role != models.RoleSystem {
			n++
		}
	}
	return n
}

// precedingUser returns the index of the nearest user message before idx, or -1.
func precedingUser(messages []models.Message, idx int) int {
	for i := idx - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return i
		}
	}
	return -1
}
