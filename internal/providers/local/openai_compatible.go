package local

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
	"github.com/agentx/chatwidget/internal/render"
)

const (
	imageMarker  = "data:image/"
	maxErrorBody = 4096
)

var imageURLPattern = regexp.MustCompile(`data:image/[^\s]+`)

// Options tunes the OpenAI-compatible client
type Options struct {
	// ImagePrompt replaces the text part of a multimodal message with no text.
	ImagePrompt string
	Timeout     time.Duration
}

// OpenAICompatibleClient streams completions from any server speaking the
// OpenAI chat completions protocol
type OpenAICompatibleClient struct {
	http        *resty.Client
	renderer    render.Renderer
	imagePrompt string
	log         *logrus.Entry
}

var _ providers.Client = (*OpenAICompatibleClient)(nil)

// NewOpenAICompatibleClient creates a new OpenAI-compatible streaming client
func NewOpenAICompatibleClient(renderer render.Renderer, opts Options, log *logrus.Entry) *OpenAICompatibleClient {
	if opts.ImagePrompt == "" {
		opts.ImagePrompt = config.DefaultImagePrompt
	}

	client := resty.New()
	if opts.Timeout > 0 {
		// bounds the wait for response headers only; a streamed body may
		// take longer and is stopped through the request context
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = opts.Timeout
		client.SetTransport(transport)
	}

	return &OpenAICompatibleClient{
		http:        client,
		renderer:    renderer,
		imagePrompt: opts.ImagePrompt,
		log:         log,
	}
}

// StreamComplete posts the request and streams the reply to h
func (c *OpenAICompatibleClient) StreamComplete(ctx context.Context, req providers.CompletionRequest, h providers.Handler) *providers.Stream {
	return providers.Run(ctx, h, func(ctx context.Context, e *providers.Emitter) {
		c.stream(ctx, req, e)
	})
}

func (c *OpenAICompatibleClient) stream(ctx context.Context, req providers.CompletionRequest, e *providers.Emitter) {
	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetBody(c.convertRequest(req)).
		SetDoNotParseResponse(true)
	if req.APIKey != "" {
		r.SetAuthToken(req.APIKey)
	}

	resp, err := r.Post(req.Endpoint())
	if err != nil {
		e.Fail(models.TransportError("stream completion", err))
		return
	}

	body := resp.RawBody()
	if body == nil {
		e.Fail(models.TransportError("stream completion", errors.New("response has no body")))
		return
	}
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		e.Fail(models.TransportError("stream completion", decodeAPIError(resp.StatusCode(), body)))
		return
	}

	var text strings.Builder
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			done, progressed := c.handleLine(line, &text)
			if done {
				break
			}
			if progressed && !e.Token(c.renderer.Render(text.String())) {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.Fail(models.TransportError("read completion stream", err))
			return
		}
	}

	final := text.String()
	e.Complete(c.renderer.Render(final), final)
}

// handleLine consumes one event-stream line. It reports whether the stream
// signalled its end and whether new text was appended.
func (c *OpenAICompatibleClient) handleLine(line string, text *strings.Builder) (done, progressed bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return false, false
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		return true, false
	}

	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		c.log.WithError(models.DecodeError("decode stream record", err)).Warn("Skipping malformed stream record")
		return false, false // Skip malformed events
	}

	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return false, false
	}
	text.WriteString(chunk.Choices[0].Delta.Content)
	return false, true
}

// convertRequest converts internal request to OpenAI request
func (c *OpenAICompatibleClient) convertRequest(req providers.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = c.convertMessage(msg)
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Stream:      true,
		Temperature: providers.Temperature,
		MaxTokens:   providers.MaxTokens,
	}
}

// convertMessage turns content with inline images into a text part followed
// by one image part per embedded data URL.
func (c *OpenAICompatibleClient) convertMessage(msg providers.Message) openai.ChatCompletionMessage {
	if !strings.Contains(msg.Content, imageMarker) {
		return openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}

	text := strings.TrimSpace(strings.SplitN(msg.Content, imageMarker, 2)[0])
	if text == "" {
		text = c.imagePrompt
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}
	for _, url := range imageURLPattern.FindAllString(msg.Content, -1) {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url},
		})
	}
	return openai.ChatCompletionMessage{Role: msg.Role, MultiContent: parts}
}

func decodeAPIError(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	var errResp openai.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return fmt.Errorf("endpoint returned status %d: %s", status, errResp.Error.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Errorf("endpoint returned status %d: %s", status, msg)
	}
	return fmt.Errorf("endpoint returned status %d", status)
}
