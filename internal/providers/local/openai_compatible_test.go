package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
	"github.com/agentx/chatwidget/internal/render"
)

// recorder collects the events delivered to a handler.
type recorder struct {
	mu        sync.Mutex
	tokens    []string
	completes [][2]string
	errs      []error
}

func (r *recorder) handler() providers.Handler {
	return providers.Handler{
		OnToken: func(markup string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tokens = append(r.tokens, markup)
		},
		OnComplete: func(markup, text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes = append(r.completes, [2]string{markup, text})
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func chunk(content string) string {
	return fmt.Sprintf("data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

// brackets renders text visibly so tests can see what was rendered.
var brackets = render.Func(func(text string) string { return "[" + text + "]" })

func newClient() *OpenAICompatibleClient {
	return NewOpenAICompatibleClient(brackets, Options{Timeout: 5 * time.Second},
		logging.Discard().WithField("component", "client"))
}

func request(serverURL string, messages ...providers.Message) providers.CompletionRequest {
	return providers.CompletionRequest{
		ServerURL: serverURL,
		APIPath:   "/v1/chat/completions",
		Model:     "m",
		Messages:  messages,
	}
}

func wait(t *testing.T, s *providers.Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestStreamRendersWholeBuffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("He"))
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, chunk("llo"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(),
		request(server.URL, providers.Message{Role: "user", Content: "hi"}), rec.handler())
	wait(t, s)

	assert.Equal(t, []string{"[He]", "[Hello]"}, rec.tokens)
	require.Len(t, rec.completes, 1)
	assert.Equal(t, [2]string{"[Hello]", "Hello"}, rec.completes[0])
	assert.Empty(t, rec.errs)
}

func TestStreamSkipsMalformedRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("a"))
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, chunk("b"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(), request(server.URL), rec.handler())
	wait(t, s)

	assert.Equal(t, []string{"[a]", "[ab]"}, rec.tokens)
	require.Len(t, rec.completes, 1)
	assert.Equal(t, "ab", rec.completes[0][1])
	assert.Empty(t, rec.errs)
}

func TestStreamCompletesOnEOFWithoutDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("only"))
	}))
	defer server.Close()

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(), request(server.URL), rec.handler())
	wait(t, s)

	require.Len(t, rec.completes, 1)
	assert.Equal(t, "only", rec.completes[0][1])
}

func TestStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(), request(server.URL), rec.handler())
	wait(t, s)

	assert.Empty(t, rec.tokens)
	assert.Empty(t, rec.completes)
	require.Len(t, rec.errs, 1)
	assert.True(t, models.IsKind(rec.errs[0], models.KindTransport))
	assert.Contains(t, rec.errs[0].Error(), "401")
	assert.Contains(t, rec.errs[0].Error(), "invalid api key")
}

func TestStreamUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(), request(url), rec.handler())
	wait(t, s)

	require.Len(t, rec.errs, 1)
	assert.True(t, models.IsKind(rec.errs[0], models.KindTransport))
	assert.Empty(t, rec.completes)
}

func TestStreamOutlivesTimeoutOnceHeadersArrive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("slow "))
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, chunk("reply"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenAICompatibleClient(brackets, Options{Timeout: 100 * time.Millisecond},
		logging.Discard().WithField("component", "client"))
	rec := &recorder{}
	s := client.StreamComplete(context.Background(), request(server.URL), rec.handler())
	wait(t, s)

	assert.Empty(t, rec.errs)
	require.Len(t, rec.completes, 1)
	assert.Equal(t, "slow reply", rec.completes[0][1])
}

func TestStreamTimesOutWaitingForHeaders(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewOpenAICompatibleClient(brackets, Options{Timeout: 100 * time.Millisecond},
		logging.Discard().WithField("component", "client"))
	rec := &recorder{}
	s := client.StreamComplete(context.Background(), request(server.URL), rec.handler())
	wait(t, s)

	require.Len(t, rec.errs, 1)
	assert.True(t, models.IsKind(rec.errs[0], models.KindTransport))
	assert.Empty(t, rec.completes)
}

func TestStreamCancelSuppressesCallbacks(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("first"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	rec := &recorder{}
	gotToken := make(chan struct{}, 1)
	h := rec.handler()
	onToken := h.OnToken
	h.OnToken = func(markup string) {
		onToken(markup)
		gotToken <- struct{}{}
	}

	s := newClient().StreamComplete(context.Background(), request(server.URL), h)
	select {
	case <-gotToken:
	case <-time.After(5 * time.Second):
		t.Fatal("no token received")
	}

	s.Cancel()
	wait(t, s)

	assert.True(t, s.Cancelled())
	assert.Equal(t, []string{"[first]"}, rec.tokens)
	assert.Empty(t, rec.completes)
	assert.Empty(t, rec.errs)
}

func TestRequestBody(t *testing.T) {
	img := "data:image/png;base64,AAAA"
	bodies := make(chan map[string]interface{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	req := request(server.URL,
		providers.Message{Role: "system", Content: "be brief"},
		providers.Message{Role: "user", Content: "what is this " + img},
	)
	req.APIKey = "secret"

	rec := &recorder{}
	s := newClient().StreamComplete(context.Background(), req, rec.handler())
	wait(t, s)
	require.Len(t, rec.completes, 1)

	body := <-bodies
	assert.Equal(t, "m", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, 0.7, body["temperature"], 0.0001)
	assert.Equal(t, float64(2048), body["max_tokens"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "be brief", messages[0].(map[string]interface{})["content"])

	parts := messages[1].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]interface{})["type"])
	assert.Equal(t, "what is this", parts[0].(map[string]interface{})["text"])
	assert.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])
	assert.Equal(t, img, parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"])
}

func TestConvertMessage(t *testing.T) {
	c := newClient()
	a := "data:image/png;base64,AAAA"
	b := "data:image/jpeg;base64,BBBB"

	tests := []struct {
		name      string
		content   string
		wantText  string
		wantParts int
	}{
		{name: "plain text stays a string", content: "hello", wantText: "hello"},
		{name: "image only uses prompt", content: a, wantText: c.imagePrompt, wantParts: 2},
		{name: "two images", content: "compare " + a + " " + b, wantText: "compare", wantParts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := c.convertMessage(providers.Message{Role: "user", Content: tt.content})
			if tt.wantParts == 0 {
				assert.Equal(t, tt.wantText, msg.Content)
				assert.Empty(t, msg.MultiContent)
				return
			}
			require.Len(t, msg.MultiContent, tt.wantParts)
			assert.Equal(t, tt.wantText, msg.MultiContent[0].Text)
			assert.True(t, strings.HasPrefix(msg.MultiContent[1].ImageURL.URL, "data:image/"))
		})
	}
}
