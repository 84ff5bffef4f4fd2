// Package ollama implements the inference Engine against a local Ollama
// server. The server address is taken from OLLAMA_HOST.
package ollama

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/google/uuid"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Engine struct {
	settings *settings.InferenceSettings
	client   *api.Client
	config   *inference.Config
}

var _ inference.Engine = (*Engine)(nil)

func NewEngine(s *settings.InferenceSettings, options ...inference.Option) (*Engine, error) {
	config := inference.NewConfig()
	if err := inference.ApplyOptions(config, options...); err != nil {
		return nil, err
	}
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "could not create ollama client")
	}
	return &Engine{
		settings: s,
		client:   client,
		config:   config,
	}, nil
}

func (e *Engine) makeRequest(req inference.Request) *api.ChatRequest {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := string(m.Role)
		if role == "" {
			role = string(conversation.RoleUser)
		}
		messages = append(messages, api.Message{Role: role, Content: m.Content})
	}
	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if e.settings.MaxResponseTokens > 0 {
		options["num_predict"] = e.settings.MaxResponseTokens
	}
	stream := true
	return &api.ChatRequest{
		Model:    e.settings.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
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

// chat runs a streaming chat call and hands every non-empty fragment to
// onDelta. It returns once the server reports the response as done.
func (e *Engine) chat(ctx context.Context, req inference.Request, onDelta func(string) error) error {
	return e.client.Chat(ctx, e.makeRequest(req), func(resp api.ChatResponse) error {
		if resp.Done {
			return nil
		}
		if delta := resp.Message.Content; delta != "" {
			return onDelta(delta)
		}
		return nil
	})
}

func (e *Engine) publishDone(ctx context.Context, md events.EventMetadata, start time.Time, text string, err error) {
	d := time.Since(start).Milliseconds()
	md.DurationMs = &d
	if err != nil {
		e.config.PublishEvent(ctx, events.NewErrorEvent(md, err))
		return
	}
	e.config.PublishEvent(ctx, events.NewFinalEvent(md, text))
}

func (e *Engine) Generate(ctx context.Context, req inference.Request) (string, error) {
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))
	start := time.Now()

	var sb strings.Builder
	err := e.chat(ctx, req, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("model", e.settings.Model).Msg("Ollama request failed")
		err = errors.Wrap(err, "ollama chat")
	}
	e.publishDone(ctx, md, start, sb.String(), err)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (e *Engine) Stream(ctx context.Context, req inference.Request) (<-chan helpers.Result[string], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))
	start := time.Now()

	c := make(chan helpers.Result[string])
	go func() {
		defer close(c)

		message := ""
		err := e.chat(ctx, req, func(delta string) error {
			message += delta
			e.config.PublishEvent(ctx, events.NewPartialCompletionEvent(md, delta, message))
			select {
			case c <- helpers.NewValueResult(delta):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			log.Error().Err(err).Str("model", e.settings.Model).Msg("Ollama stream failed")
			err = errors.Wrap(err, "ollama chat stream")
			e.publishDone(ctx, md, start, message, err)
			c <- helpers.NewErrorResult[string](err)
			return
		}
		e.publishDone(ctx, md, start, message, nil)
	}()

	return c, nil
}
