// Package openai implements the inference Engine on top of the OpenAI chat
// completions API, or any server speaking the same protocol.
package openai

import (
	"context"
	"io"
	"time"

	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("openai returned no choices")

type Engine struct {
	settings *settings.InferenceSettings
	client   *go_openai.Client
	config   *inference.Config
}

var _ inference.Engine = (*Engine)(nil)

// NewEngine creates an engine for s.Model. The API key is required; the base
// URL falls back to the public OpenAI endpoint.
func NewEngine(s *settings.InferenceSettings, options ...inference.Option) (*Engine, error) {
	config := inference.NewConfig()
	if err := inference.ApplyOptions(config, options...); err != nil {
		return nil, err
	}
	client, err := MakeClient(s)
	if err != nil {
		return nil, err
	}
	return &Engine{
		settings: s,
		client:   client,
		config:   config,
	}, nil
}

func MakeClient(s *settings.InferenceSettings) (*go_openai.Client, error) {
	if s.APIKey == "" {
		return nil, settings.ErrMissingAPIKey
	}
	config := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func convertRole(role conversation.Role) string {
	switch role {
	case conversation.RoleSystem:
		return go_openai.ChatMessageRoleSystem
	case conversation.RoleAssistant:
		return go_openai.ChatMessageRoleAssistant
	default:
		return go_openai.ChatMessageRoleUser
	}
}

func (e *Engine) makeRequest(req inference.Request, stream bool) go_openai.ChatCompletionRequest {
	messages := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    convertRole(m.Role),
			Content: m.Content,
		})
	}
	return go_openai.ChatCompletionRequest{
		Model:       e.settings.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   e.settings.MaxResponseTokens,
		Stream:      stream,
	}
}

func (e *Engine) metadata(ctx context.Context, req inference.Request) events.EventMetadata {
	md := events.MetadataFromContext(ctx)
	md.ID = uuid.New()
	md.Model = e.settings.Model
	temperature := req.Temperature
	md.Temperature = &temperature
	return md
}

func withDuration(md events.EventMetadata, start time.Time) events.EventMetadata {
	d := time.Since(start).Milliseconds()
	md.DurationMs = &d
	return md
}

func (e *Engine) Generate(ctx context.Context, req inference.Request) (string, error) {
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))
	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, e.makeRequest(req, false))
	if err != nil {
		log.Error().Err(err).Str("model", e.settings.Model).Msg("OpenAI request failed")
		e.config.PublishEvent(ctx, events.NewErrorEvent(withDuration(md, start), err))
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		e.config.PublishEvent(ctx, events.NewErrorEvent(withDuration(md, start), ErrEmptyResponse))
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	e.config.PublishEvent(ctx, events.NewFinalEvent(withDuration(md, start), text))
	return text, nil
}

func (e *Engine) Stream(ctx context.Context, req inference.Request) (<-chan helpers.Result[string], error) {
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))
	start := time.Now()

	stream, err := e.client.CreateChatCompletionStream(ctx, e.makeRequest(req, true))
	if err != nil {
		log.Error().Err(err).Str("model", e.settings.Model).Msg("OpenAI streaming request failed")
		e.config.PublishEvent(ctx, events.NewErrorEvent(withDuration(md, start), err))
		return nil, errors.Wrap(err, "openai chat completion stream")
	}

	c := make(chan helpers.Result[string])
	go func() {
		defer close(c)
		defer stream.Close()

		fail := func(err error) {
			e.config.PublishEvent(ctx, events.NewErrorEvent(withDuration(md, start), err))
			c <- helpers.NewErrorResult[string](err)
		}

		message := ""
		chunkCount := 0
		for {
			if err := ctx.Err(); err != nil {
				log.Debug().Int("chunks_received", chunkCount).Msg("OpenAI streaming cancelled by context")
				fail(err)
				return
			}

			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				log.Debug().Int("chunks_received", chunkCount).Msg("OpenAI stream completed")
				break
			}
			if err != nil {
				log.Error().Err(err).Int("chunks_received", chunkCount).Msg("OpenAI stream receive failed")
				fail(errors.Wrap(err, "openai stream receive"))
				return
			}
			chunkCount++

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			message += delta
			e.config.PublishEvent(ctx, events.NewPartialCompletionEvent(md, delta, message))

			select {
			case c <- helpers.NewValueResult(delta):
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
		}

		e.config.PublishEvent(ctx, events.NewFinalEvent(withDuration(md, start), message))
	}()

	return c, nil
}
