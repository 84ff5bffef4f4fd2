// Package mock provides a scripted inference engine that replays canned
// responses, used by tests and by offline dry runs.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNoResponses = errors.New("mock engine has no scripted responses")

// Response is one scripted reply. When streamed, each chunk is emitted as a
// separate fragment. A non-nil Err is returned after the chunks.
type Response struct {
	Chunks []string
	Err    error
}

func Text(text string) Response {
	return Response{Chunks: []string{text}}
}

func Chunks(chunks ...string) Response {
	return Response{Chunks: chunks}
}

func Fail(err error) Response {
	return Response{Err: err}
}

// Engine returns its responses round-robin, one per call.
type Engine struct {
	mu        sync.Mutex
	responses []Response
	index     int
	requests  []inference.Request
	config    *inference.Config
}

var _ inference.Engine = (*Engine)(nil)

func NewEngine(responses []Response, options ...inference.Option) (*Engine, error) {
	config := inference.NewConfig()
	if err := inference.ApplyOptions(config, options...); err != nil {
		return nil, err
	}
	return &Engine{
		responses: responses,
		config:    config,
	}, nil
}

// NewTextEngine is a shortcut for an engine replying with whole texts.
func NewTextEngine(texts ...string) *Engine {
	responses := make([]Response, 0, len(texts))
	for _, t := range texts {
		responses = append(responses, Text(t))
	}
	e, _ := NewEngine(responses)
	return e
}

// NewDemoEngine plays a short game that the guesser wins on the third turn.
// Guesser and answerer share it, so questions and answers alternate.
func NewDemoEngine(concept string, options ...inference.Option) (*Engine, error) {
	return NewEngine([]Response{
		Text("Is it a living thing or a person?"),
		Text("Yes"),
		Text("Is it a famous historical figure?"),
		Text("Yes"),
		Text("Is it " + concept + "?"),
		Text("DONE"),
	}, options...)
}

// NewDemoGuesser and NewDemoAnswerer split the demo game into one engine per
// role.
func NewDemoGuesser(concept string, options ...inference.Option) (*Engine, error) {
	return NewEngine([]Response{
		Text("Is it a living thing or a person?"),
		Text("Is it a famous historical figure?"),
		Text("Is it " + concept + "?"),
	}, options...)
}

func NewDemoAnswerer(options ...inference.Option) (*Engine, error) {
	return NewEngine([]Response{Text("Yes"), Text("Yes"), Text("DONE")}, options...)
}

func (e *Engine) next(req inference.Request) (Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, req)
	if len(e.responses) == 0 {
		return Response{}, ErrNoResponses
	}
	r := e.responses[e.index]
	e.index = (e.index + 1) % len(e.responses)
	return r, nil
}

// Requests returns a copy of all requests received so far.
func (e *Engine) Requests() []inference.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]inference.Request{}, e.requests...)
}

func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *Engine) metadata(ctx context.Context, req inference.Request) events.EventMetadata {
	md := events.MetadataFromContext(ctx)
	md.ID = uuid.New()
	md.Model = "mock"
	temperature := req.Temperature
	md.Temperature = &temperature
	return md
}

func (e *Engine) Generate(ctx context.Context, req inference.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := e.next(req)
	if err != nil {
		return "", err
	}
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))
	if r.Err != nil {
		e.config.PublishEvent(ctx, events.NewErrorEvent(md, r.Err))
		return "", r.Err
	}
	text := strings.Join(r.Chunks, "")
	e.config.PublishEvent(ctx, events.NewFinalEvent(md, text))
	return text, nil
}

func (e *Engine) Stream(ctx context.Context, req inference.Request) (<-chan helpers.Result[string], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := e.next(req)
	if err != nil {
		return nil, err
	}
	md := e.metadata(ctx, req)
	e.config.PublishEvent(ctx, events.NewStartEvent(md))

	c := make(chan helpers.Result[string])
	go func() {
		defer close(c)
		completion := ""
		for _, chunk := range r.Chunks {
			completion += chunk
			e.config.PublishEvent(ctx, events.NewPartialCompletionEvent(md, chunk, completion))
			select {
			case c <- helpers.NewValueResult(chunk):
			case <-ctx.Done():
				c <- helpers.NewErrorResult[string](ctx.Err())
				return
			}
		}
		if r.Err != nil {
			e.config.PublishEvent(ctx, events.NewErrorEvent(md, r.Err))
			c <- helpers.NewErrorResult[string](r.Err)
			return
		}
		e.config.PublishEvent(ctx, events.NewFinalEvent(md, completion))
	}()

	return c, nil
}
