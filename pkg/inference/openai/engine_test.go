package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type recordingSink struct {
	types []events.EventType
}

func (r *recordingSink) PublishEvent(event events.Event) error {
	r.types = append(r.types, event.Type())
	return nil
}

func newServer(t *testing.T, last *captured, chunks []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(last))

		if !last.Stream {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
				`"choices":[{"index":0,"message":{"role":"assistant","content":"Sometimes"},"finish_reason":"stop"}]}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			b, _ := json.Marshal(chunk)
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\","+
				"\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", b)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func request() inference.Request {
	return inference.Request{
		Messages: conversation.NewConversation(
			conversation.NewChatMessage(conversation.RoleSystem, "You are the answerer"),
			conversation.NewChatMessage(conversation.RoleUser, "Question: Is it alive?"),
		),
		Temperature: 0.5,
	}
}

func newEngine(t *testing.T, url string, sink events.EventSink) *Engine {
	s := &settings.InferenceSettings{
		ApiType: settings.ApiTypeOpenAI,
		Model:   "gpt-4o-mini",
		BaseURL: url + "/v1",
		APIKey:  "test-key",
	}
	e, err := NewEngine(s, inference.WithSink(sink))
	require.NoError(t, err)
	return e
}

func TestNewEngineRequiresAPIKey(t *testing.T) {
	_, err := NewEngine(&settings.InferenceSettings{Model: "gpt-4o-mini"})
	require.ErrorIs(t, err, settings.ErrMissingAPIKey)
}

func TestGenerate(t *testing.T) {
	var last captured
	srv := newServer(t, &last, nil)
	defer srv.Close()

	sink := &recordingSink{}
	e := newEngine(t, srv.URL, sink)
	text, err := e.Generate(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "Sometimes", text)
	assert.Equal(t, "gpt-4o-mini", last.Model)
	assert.InDelta(t, 0.5, last.Temperature, 0.001)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, "system", last.Messages[0].Role)
	assert.Equal(t, "Question: Is it alive?", last.Messages[1].Content)
	assert.Equal(t, []events.EventType{events.EventTypeStart, events.EventTypeFinal}, sink.types)
}

func TestStream(t *testing.T) {
	var last captured
	srv := newServer(t, &last, []string{"D", "ONE"})
	defer srv.Close()

	sink := &recordingSink{}
	e := newEngine(t, srv.URL, sink)
	c, err := e.Stream(context.Background(), request())
	require.NoError(t, err)

	var fragments []string
	text, err := helpers.Drain(c, func(s string) { fragments = append(fragments, s) })
	require.NoError(t, err)
	assert.Equal(t, "DONE", text)
	assert.Equal(t, []string{"D", "ONE"}, fragments)
	assert.True(t, last.Stream)
	assert.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}, sink.types)
}

func TestGenerateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	e := newEngine(t, srv.URL, sink)
	_, err := e.Generate(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, []events.EventType{events.EventTypeStart, events.EventTypeError}, sink.types)
}
